// internal/component/services.go
package component

import (
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/formaly/internal/config"
	"github.com/yanizio/formaly/internal/fieldtype"
	"github.com/yanizio/formaly/internal/form"
	"github.com/yanizio/formaly/internal/publicform"
	"github.com/yanizio/formaly/internal/store"
)

// Services exposes the process-wide handles to Components during Init.
type Services interface {
	GetDB() *sqlx.DB
	GetConfig() *config.Config
	GetStore() *store.Store
	GetRegistry() *fieldtype.Registry
	GetPublic() *publicform.Service
	GetCSRF() *form.CSRF
}
