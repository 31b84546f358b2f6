// Package instcache is a gorm-backed persistent mirror of the in-memory
// instantiation caches owned by typesys.Registry and instantiate.Engine,
// grounded on termfx-morfx's db/models package: a small set of
// gorm-tagged structs migrated with AutoMigrate, behind a thin
// Connect/Record/Lookup API. It exists so a second compiler invocation
// over the same translation unit (e.g. an incremental rebuild) can skip
// re-materializing a template instantiation whose mangled name it already
// knows, without re-running the Instantiation Engine.
package instcache

import (
	"time"

	"gorm.io/datatypes"
)

// Kind distinguishes a class-template instantiation record from a
// function-template one, mirroring the two separate in-memory caches
// instantiate.Engine keeps (see DESIGN.md, component J).
type Kind string

const (
	KindClass    Kind = "class"
	KindFunction Kind = "function"
)

// Instantiation records one materialized template instantiation: its
// content-addressed cache key (template name + CacheKey()-rendered
// argument list) and the mangled/internal name the Instantiation Engine
// produced for it.
type Instantiation struct {
	ID           string         `gorm:"primaryKey;type:varchar(80)"` // sha256(TemplateName+"|"+ArgsKey), hex
	TemplateName string         `gorm:"type:varchar(255);not null;index"`
	ArgsKey      string         `gorm:"type:text;not null"` // targ.List.CacheKey() rendering, used for content addressing
	Args         datatypes.JSON `gorm:"type:json"`          // the same argument list, as a queryable JSON array of strings
	Kind         Kind           `gorm:"type:varchar(10);not null"`
	MangledName  string         `gorm:"type:varchar(512);not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Diagnostic records one non-fatal diagnostic the Instantiation Engine
// accumulated for a given instantiation (a failed static_assert, an
// unmatched out-of-line definition), so a later `dump-cache` inspection
// can show why an instantiation's layout looks the way it does without
// re-running the compiler.
type Diagnostic struct {
	ID               uint   `gorm:"primaryKey;autoIncrement"`
	InstantiationID  string `gorm:"type:varchar(80);index"`
	Message          string `gorm:"type:text;not null"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}
