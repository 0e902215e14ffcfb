// common.go
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
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/tabledit/internal/models"
	"github.com/localnerve/tabledit/internal/store"
	"github.com/localnerve/tabledit/internal/types"
	"github.com/localnerve/tabledit/internal/utils"
)

// getPrincipal extracts the authenticated caller from context (set by auth
// middleware).
func getPrincipal(c *fiber.Ctx) (store.Principal, error) {
	user := c.Locals("user")
	if user == nil {
		return store.Principal{}, fmt.Errorf("user not found in context")
	}

	userMap, ok := user.(map[string]interface{})
	if !ok {
		return store.Principal{}, fmt.Errorf("invalid user data format")
	}

	userID, ok := userMap["id"].(string)
	if !ok || userID == "" {
		return store.Principal{}, fmt.Errorf("user ID not found")
	}

	p := store.Principal{UserID: userID}
	if email, ok := userMap["email"].(string); ok {
		p.Email = email
	}
	if verified, ok := userMap["email_verified"].(bool); ok {
		p.EmailVerified = verified
	}
	return p, nil
}

// storeErrorResponse maps a store error to its HTTP response.
func storeErrorResponse(c *fiber.Ctx, err error, errorType string) error {
	kind := types.KindOf(err)
	switch kind {
	case types.KindUnauthenticated:
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, errorType)
	case types.KindForbidden, types.KindQuotaExceeded:
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, errorType)
	case types.KindNotFound:
		return utils.NotFoundResponse(c, err.Error())
	case types.KindInvalidName, types.KindInvalidDocument, types.KindInvalidQuery:
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, errorType)
	case types.KindConflict:
		return utils.VersionErrorResponse(c)
	case types.KindRateLimited:
		c.Set("Retry-After", "60")
		return utils.ErrorResponse(c, err.Error(), fiber.StatusTooManyRequests, errorType)
	case types.KindBackendUnavailable:
		return utils.ErrorResponse(c, err.Error(), fiber.StatusServiceUnavailable, errorType)
	}
	return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, errorType)
}

// FileSummary is the listing view of a file, without content.
type FileSummary struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	Version        string     `json:"version"`
	FileSize       int64      `json:"fileSize"`
	RowCount       int        `json:"rowCount"`
	ColumnCount    int        `json:"columnCount"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	LastAccessedAt *time.Time `json:"lastAccessedAt,omitempty"`
}

func summarize(rec *models.FileRecord) FileSummary {
	return FileSummary{
		ID:             rec.ID,
		Name:           rec.Name,
		Description:    rec.Description,
		Tags:           rec.TagList(),
		Version:        fmt.Sprintf("%d", rec.Version),
		FileSize:       rec.FileSize,
		RowCount:       rec.RowCount,
		ColumnCount:    rec.ColumnCount,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
		LastAccessedAt: rec.LastAccessedAt,
	}
}

func summarizeAll(recs []models.FileRecord) []FileSummary {
	out := make([]FileSummary, 0, len(recs))
	for i := range recs {
		out = append(out, summarize(&recs[i]))
	}
	return out
}
