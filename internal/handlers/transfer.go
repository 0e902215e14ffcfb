// transfer.go
//
// Cloud table editor backend and client sync engine
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of tabledit.
// tabledit is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// tabledit is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with tabledit.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package handlers

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/tabledit/internal/document"
	"github.com/localnerve/tabledit/internal/utils"
)

const (
	formatJSON = "json"
	formatXLSX = "xlsx"
	formatCSV  = "csv"

	contentTypeJSON = "application/json"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCSV  = "text/csv"
)

// ExportFile handles GET /api/files/:id/export?format=json|xlsx|csv
// @Summary Export a file
// @Description Download a file as a tagged JSON envelope, an Excel workbook, or CSV
// @Tags Transfer
// @Produce json
// @Param id path string true "File ID"
// @Param format query string false "Export format, defaults to json"
// @Success 200 {file} binary
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /files/{id}/export [get]
func (h *FilesHandler) ExportFile(c *fiber.Ctx) error {
	p, err := getPrincipal(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "files.authorization.user")
	}

	format := strings.ToLower(c.Query("format", formatJSON))

	rec, err := h.Store.Read(c.UserContext(), p, c.Params("id"))
	if err != nil {
		return storeErrorResponse(c, err, "exportFile")
	}
	doc, err := rec.Document()
	if err != nil {
		return utils.ErrorResponse(c, fmt.Sprintf("Stored content unreadable: %v", err), fiber.StatusInternalServerError, "exportFile")
	}

	var payload []byte
	var contentType string
	switch format {
	case formatJSON:
		payload, err = document.Export(rec.Name, doc, time.Now().UTC())
		contentType = contentTypeJSON
	case formatXLSX:
		payload, err = document.WriteXLSX(doc)
		contentType = contentTypeXLSX
	case formatCSV:
		payload, err = document.WriteCSV(doc)
		contentType = contentTypeCSV
	default:
		return utils.ErrorResponse(c, fmt.Sprintf("Unknown export format %q", format), fiber.StatusBadRequest, "exportFile")
	}
	if err != nil {
		return storeErrorResponse(c, err, "exportFile")
	}

	filename := fmt.Sprintf("%s.%s", rec.Name, format)
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Status(fiber.StatusOK).Send(payload)
}

// ImportFile handles POST /api/files/import
// @Summary Import a file
// @Description Create a new file from an uploaded JSON envelope, Excel workbook, or CSV
// @Tags Transfer
// @Accept mpfd
// @Produce json
// @Param file formData file true "Upload, format inferred from the extension"
// @Param name formData string false "File name override"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /files/import [post]
func (h *FilesHandler) ImportFile(c *fiber.Ctx) error {
	p, err := getPrincipal(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "files.authorization.user")
	}

	header, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, "Missing upload field \"file\"", fiber.StatusBadRequest, "importFile")
	}
	upload, err := header.Open()
	if err != nil {
		return utils.ErrorResponse(c, fmt.Sprintf("Unreadable upload: %v", err), fiber.StatusBadRequest, "importFile")
	}
	defer upload.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(upload); err != nil {
		return utils.ErrorResponse(c, fmt.Sprintf("Unreadable upload: %v", err), fiber.StatusBadRequest, "importFile")
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	name := c.FormValue("name")
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename))
	}

	var doc *document.TableDocument
	switch ext {
	case ".json":
		env, err := document.Import(buf.Bytes())
		if err != nil {
			return storeErrorResponse(c, err, "importFile")
		}
		doc = env.Data
		if c.FormValue("name") == "" && env.Name != "" {
			name = env.Name
		}
	case ".xlsx":
		doc, err = document.ReadXLSX(bytes.NewReader(buf.Bytes()))
		if err != nil {
			return storeErrorResponse(c, err, "importFile")
		}
	case ".csv":
		doc, err = document.ReadCSV(bytes.NewReader(buf.Bytes()))
		if err != nil {
			return storeErrorResponse(c, err, "importFile")
		}
	default:
		return utils.ErrorResponse(c, fmt.Sprintf("Unsupported upload extension %q", ext), fiber.StatusBadRequest, "importFile")
	}

	id, err := h.Store.Create(c.UserContext(), p, name, doc)
	if err != nil {
		return storeErrorResponse(c, err, "importFile")
	}

	return utils.MutationSuccessResponse(c, id, 1)
}
