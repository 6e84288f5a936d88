package tenantscope

import (
	"errors"
	"reflect"

	"github.com/UniqBrio/UniqBrio-sub017/internal/tenant/tenantcontext"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// tenantField is the model field every tenant-owned entity carries.
const tenantField = "TenantID"

var (
	// ErrTenantMismatch is returned when a write payload names a tenant
	// other than the one bound to the operation's context.
	ErrTenantMismatch = errors.New("tenant_mismatch")
)

// Plugin funnels every create/read/update/delete against tenant-owned
// models through the ambient tenant binding. Reads and deletes get an
// implicit `tenant_id = ?` predicate conjoined with every caller filter;
// writes have the tenant populated or validated. Models without a TenantID
// field and system scopes pass through untouched.
type Plugin struct{}

// New returns the scoping plugin for gorm's Use.
func New() Plugin { return Plugin{} }

// Name implements gorm.Plugin.
func (Plugin) Name() string { return "tenantscope" }

// Initialize implements gorm.Plugin.
func (Plugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Create().Before("gorm:create").Register("tenantscope:before_create", beforeCreate); err != nil {
		return err
	}
	if err := db.Callback().Query().Before("gorm:query").Register("tenantscope:before_query", conjoinTenant); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("tenantscope:before_update", beforeUpdate); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("tenantscope:before_delete", conjoinTenant); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register("tenantscope:before_row", conjoinTenant); err != nil {
		return err
	}
	return nil
}

func lookupTenantField(tx *gorm.DB) *schema.Field {
	if tx.Statement == nil || tx.Statement.Schema == nil {
		return nil
	}
	return tx.Statement.Schema.LookUpField(tenantField)
}

// conjoinTenant injects the ambient tenant as a mandatory predicate. The
// caller cannot construct a filter that escapes it.
func conjoinTenant(tx *gorm.DB) {
	field := lookupTenantField(tx)
	if field == nil {
		return
	}
	ctx := tx.Statement.Context
	if tenantcontext.IsSystem(ctx) {
		return
	}

	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		_ = tx.AddError(err)
		return
	}

	tx.Statement.AddClause(clause.Where{Exprs: []clause.Expression{
		clause.Eq{
			Column: clause.Column{Table: clause.CurrentTable, Name: field.DBName},
			Value:  tenantID,
		},
	}})
}

func beforeUpdate(tx *gorm.DB) {
	field := lookupTenantField(tx)
	if field == nil {
		return
	}
	ctx := tx.Statement.Context
	if tenantcontext.IsSystem(ctx) {
		return
	}

	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		_ = tx.AddError(err)
		return
	}

	if values, ok := tx.Statement.Dest.(map[string]any); ok {
		if payload, exists := values[field.DBName]; exists {
			if s, ok := payload.(string); ok && s != tenantID {
				_ = tx.AddError(ErrTenantMismatch)
				return
			}
		}
	}

	tx.Statement.AddClause(clause.Where{Exprs: []clause.Expression{
		clause.Eq{
			Column: clause.Column{Table: clause.CurrentTable, Name: field.DBName},
			Value:  tenantID,
		},
	}})
}

// beforeCreate stamps the ambient tenant onto new rows and rejects rows
// already stamped with a different one.
func beforeCreate(tx *gorm.DB) {
	field := lookupTenantField(tx)
	if field == nil {
		return
	}
	ctx := tx.Statement.Context
	if tenantcontext.IsSystem(ctx) {
		return
	}

	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		_ = tx.AddError(err)
		return
	}

	switch tx.Statement.ReflectValue.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < tx.Statement.ReflectValue.Len(); i++ {
			if err := stampTenant(tx, field, tx.Statement.ReflectValue.Index(i), tenantID); err != nil {
				_ = tx.AddError(err)
				return
			}
		}
	case reflect.Struct:
		if err := stampTenant(tx, field, tx.Statement.ReflectValue, tenantID); err != nil {
			_ = tx.AddError(err)
		}
	}
}

func stampTenant(tx *gorm.DB, field *schema.Field, rv reflect.Value, tenantID string) error {
	rv = reflect.Indirect(rv)
	if rv.Kind() != reflect.Struct {
		return nil
	}
	current, isZero := field.ValueOf(tx.Statement.Context, rv)
	if !isZero {
		if s, ok := current.(string); ok && s != tenantID {
			return ErrTenantMismatch
		}
		return nil
	}
	return field.Set(tx.Statement.Context, rv, tenantID)
}
