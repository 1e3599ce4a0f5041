package entity

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// FieldMapping names the persistence columns the standard interceptors touch
// on one entity type. Zero-valued entries fall back to the defaults, so a
// mapping only needs to list the columns an entity renames.
type FieldMapping struct {
	CreatedAt string
	UpdatedAt string
	CreatedBy string
	UpdatedBy string
	Version   string
	IsDeleted string
	DeletedAt string
	DeletedBy string
}

// DefaultFieldMapping returns the conventional column names.
func DefaultFieldMapping() FieldMapping {
	return FieldMapping{
		CreatedAt: "created_at",
		UpdatedAt: "updated_at",
		CreatedBy: "created_by",
		UpdatedBy: "updated_by",
		Version:   "version",
		IsDeleted: "is_deleted",
		DeletedAt: "deleted_at",
		DeletedBy: "deleted_by",
	}
}

// merged fills zero entries of m from the defaults.
func (m FieldMapping) merged() FieldMapping {
	def := DefaultFieldMapping()
	if m.CreatedAt == "" {
		m.CreatedAt = def.CreatedAt
	}
	if m.UpdatedAt == "" {
		m.UpdatedAt = def.UpdatedAt
	}
	if m.CreatedBy == "" {
		m.CreatedBy = def.CreatedBy
	}
	if m.UpdatedBy == "" {
		m.UpdatedBy = def.UpdatedBy
	}
	if m.Version == "" {
		m.Version = def.Version
	}
	if m.IsDeleted == "" {
		m.IsDeleted = def.IsDeleted
	}
	if m.DeletedAt == "" {
		m.DeletedAt = def.DeletedAt
	}
	if m.DeletedBy == "" {
		m.DeletedBy = def.DeletedBy
	}
	return m
}

// Registry maps entity type names to their field mappings. It is an explicit
// configuration object passed at chain construction; there is no package
// level registry on purpose.
type Registry struct {
	mappings *xsync.MapOf[string, FieldMapping]
}

// NewRegistry creates an empty registry; lookups fall back to the default
// mapping.
func NewRegistry() *Registry {
	return &Registry{mappings: xsync.NewMapOf[string, FieldMapping]()}
}

// Register installs (or replaces) the mapping for an entity type name.
// Unset entries are filled from the defaults at registration time.
func (r *Registry) Register(entityType string, m FieldMapping) {
	r.mappings.Store(entityType, m.merged())
}

// Mapping returns the mapping for the entity type, defaulting when none was
// registered.
func (r *Registry) Mapping(entityType string) FieldMapping {
	if m, ok := r.mappings.Load(entityType); ok {
		return m
	}
	return DefaultFieldMapping()
}

// Audited is an embeddable audit-stamp block using the default column names.
type Audited struct {
	CreatedAt time.Time `bun:"created_at" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at" json:"updated_at"`
	CreatedBy string    `bun:"created_by" json:"created_by,omitempty"`
	UpdatedBy string    `bun:"updated_by" json:"updated_by,omitempty"`
}

// Versioned is an embeddable optimistic-lock counter using the default
// column name.
type Versioned struct {
	Version int64 `bun:"version" json:"version"`
}

// SoftDeletable is an embeddable soft-delete block using the default column
// names.
type SoftDeletable struct {
	IsDeleted bool       `bun:"is_deleted" json:"is_deleted"`
	DeletedAt *time.Time `bun:"deleted_at" json:"deleted_at,omitempty"`
	DeletedBy string     `bun:"deleted_by" json:"deleted_by,omitempty"`
}
