// files.go
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
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/tabledit/internal/document"
	"github.com/localnerve/tabledit/internal/store"
	"github.com/localnerve/tabledit/internal/types"
	"github.com/localnerve/tabledit/internal/utils"
)

// FilesHandler handles file storage routes
type FilesHandler struct {
	Store *store.Store
}

type createFileRequest struct {
	Name     string                  `json:"name"`
	Document *document.TableDocument `json:"document"`
}

type updateFileRequest struct {
	Name     string                  `json:"name"`
	Document *document.TableDocument `json:"document"`
	Version  types.FlexUint64        `json:"version"`
}

type metadataRequest struct {
	Description string                 `json:"description"`
	Tags        types.FlexList[string] `json:"tags"`
}

type batchDeleteRequest struct {
	IDs types.FlexList[string] `json:"ids"`
}

// CreateFile handles POST /api/files
// @Summary Create a file
// @Description Save a new table document under the caller's account
// @Tags Files
// @Accept json
// @Produce json
// @Param body body createFileRequest true "File name and document"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 429 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /files [post]
func (h *FilesHandler) CreateFile(c *fiber.Ctx) error {
	p, err := getPrincipal(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "files.authorization.user")
	}

	var req createFileRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fmt.Sprintf("Invalid request body: %v", err), fiber.StatusBadRequest, "createFile")
	}

	id, err := h.Store.Create(c.UserContext(), p, req.Name, req.Document)
	if err != nil {
		return storeErrorResponse(c, err, "createFile")
	}

	return utils.MutationSuccessResponse(c, id, 1)
}

// ListFiles handles GET /api/files
// @Summary List files
// @Description List the caller's active files, newest first, without content
// @Tags Files
// @Produce json
// @Success 200 {array} handlers.FileSummary
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 429 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /files [get]
func (h *FilesHandler) ListFiles(c *fiber.Ctx) error {
	p, err := getPrincipal(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "files.authorization.user")
	}

	files, err := h.Store.List(c.UserContext(), p)
	if err != nil {
		return storeErrorResponse(c, err, "listFiles")
	}

	return c.Status(fiber.StatusOK).JSON(summarizeAll(files))
}

// SearchFiles handles GET /api/files/search?q=term
// @Summary Search files
// @Description Case-insensitive substring search over name, description, and tags
// @Tags Files
// @Produce json
// @Param q query string true "Search term, at least 2 characters"
// @Success 200 {array} handlers.FileSummary
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /files/search [get]
func (h *FilesHandler) SearchFiles(c *fiber.Ctx) error {
	p, err := getPrincipal(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "files.authorization.user")
	}

	files, err := h.Store.Search(c.UserContext(), p, c.Query("q"))
	if err != nil {
		return storeErrorResponse(c, err, "searchFiles")
	}

	return c.Status(fiber.StatusOK).JSON(summarizeAll(files))
}

// GetFile handles GET /api/files/:id
// @Summary Get a file
// @Description Return a file's metadata and its table document
// @Tags Files
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /files/{id} [get]
func (h *FilesHandler) GetFile(c *fiber.Ctx) error {
	p, err := getPrincipal(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "files.authorization.user")
	}

	rec, err := h.Store.Read(c.UserContext(), p, c.Params("id"))
	if err != nil {
		return storeErrorResponse(c, err, "getFile")
	}

	doc, err := rec.Document()
	if err != nil {
		return utils.ErrorResponse(c, fmt.Sprintf("Stored content unreadable: %v", err), fiber.StatusInternalServerError, "getFile")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"file":     summarize(rec),
		"document": doc,
	})
}

// UpdateFile handles PUT /api/files/:id
// @Summary Update a file
// @Description Replace a file's name and content, guarded by its version
// @Tags Files
// @Accept json
// @Produce json
// @Param id path string true "File ID"
// @Param body body updateFileRequest true "New name, document, and expected version"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /files/{id} [put]
func (h *FilesHandler) UpdateFile(c *fiber.Ctx) error {
	p, err := getPrincipal(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "files.authorization.user")
	}

	var req updateFileRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fmt.Sprintf("Invalid request body: %v", err), fiber.StatusBadRequest, "updateFile")
	}

	id := c.Params("id")
	newVersion, err := h.Store.Update(c.UserContext(), p, id, req.Name, req.Document, req.Version.Uint64())
	if err != nil {
		return storeErrorResponse(c, err, "updateFile")
	}

	return utils.MutationSuccessResponse(c, id, newVersion)
}

// SetFileMetadata handles PUT /api/files/:id/metadata
// @Summary Set file metadata
// @Description Update description and tags without touching content or version
// @Tags Files
// @Accept json
// @Produce json
// @Param id path string true "File ID"
// @Param body body metadataRequest true "Description and tags"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /files/{id}/metadata [put]
func (h *FilesHandler) SetFileMetadata(c *fiber.Ctx) error {
	p, err := getPrincipal(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "files.authorization.user")
	}

	var req metadataRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fmt.Sprintf("Invalid request body: %v", err), fiber.StatusBadRequest, "setFileMetadata")
	}

	id := c.Params("id")
	if err := h.Store.SetMetadata(c.UserContext(), p, id, req.Description, req.Tags.Slice()); err != nil {
		return storeErrorResponse(c, err, "setFileMetadata")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteFile handles DELETE /api/files/:id
// @Summary Soft-delete a file
// @Description Mark a file inactive; it disappears from listings but is recoverable server-side
// @Tags Files
// @Produce json
// @Param id path string true "File ID"
// @Success 204
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /files/{id} [delete]
func (h *FilesHandler) DeleteFile(c *fiber.Ctx) error {
	p, err := getPrincipal(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "files.authorization.user")
	}

	if err := h.Store.SoftDelete(c.UserContext(), p, c.Params("id")); err != nil {
		return storeErrorResponse(c, err, "deleteFile")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// PurgeFile handles DELETE /api/files/:id/permanent
// @Summary Permanently delete a file
// @Description Remove a file outright, whether active or soft-deleted
// @Tags Files
// @Produce json
// @Param id path string true "File ID"
// @Success 204
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /files/{id}/permanent [delete]
func (h *FilesHandler) PurgeFile(c *fiber.Ctx) error {
	p, err := getPrincipal(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "files.authorization.user")
	}

	if err := h.Store.Purge(c.UserContext(), p, c.Params("id")); err != nil {
		return storeErrorResponse(c, err, "purgeFile")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// BatchDeleteFiles handles POST /api/files/batch-delete
// @Summary Soft-delete several files
// @Description All-or-nothing batch soft delete; a missing or foreign id fails the whole batch
// @Tags Files
// @Accept json
// @Produce json
// @Param body body batchDeleteRequest true "File ids, a single id or an array"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /files/batch-delete [post]
func (h *FilesHandler) BatchDeleteFiles(c *fiber.Ctx) error {
	p, err := getPrincipal(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "files.authorization.user")
	}

	var req batchDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fmt.Sprintf("Invalid request body: %v", err), fiber.StatusBadRequest, "batchDeleteFiles")
	}

	count, err := h.Store.BatchSoftDelete(c.UserContext(), p, req.IDs.Slice())
	if err != nil {
		return storeErrorResponse(c, err, "batchDeleteFiles")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Success",
		"ok":      true,
		"deleted": count,
	})
}
