// remote_store.go
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

package autosave

import (
	"context"

	"github.com/localnerve/tabledit/internal/document"
	"github.com/localnerve/tabledit/internal/store"
)

// StoreRemote binds an authenticated principal to a file store so the
// scheduler can push saves without carrying credentials itself. The caller
// owns session lifetime; swap the adapter out when the user changes.
type StoreRemote struct {
	Store     *store.Store
	Principal store.Principal
}

var _ Remote = (*StoreRemote)(nil)

func (r *StoreRemote) Create(ctx context.Context, name string, doc *document.TableDocument) (string, error) {
	return r.Store.Create(ctx, r.Principal, name, doc)
}

func (r *StoreRemote) Update(ctx context.Context, id, name string, doc *document.TableDocument, expectedVersion uint64) (uint64, error) {
	return r.Store.Update(ctx, r.Principal, id, name, doc, expectedVersion)
}
