package instcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"gorm.io/gorm"
)

// Cache is a thin wrapper over a *gorm.DB, scoping every query to the
// Instantiation/Diagnostic tables. It never blocks template materialization
// on its own availability: every method returns an error the caller is
// expected to log and otherwise ignore, matching spec §4.J.3.9's "report
// every failure, do not short-circuit" stance applied to this optional
// persistence layer rather than to the Instantiation Engine's core path.
type Cache struct {
	db *gorm.DB
}

// New wraps an already-connected *gorm.DB (from ConnectSQLite or
// ConnectMySQL).
func New(db *gorm.DB) *Cache { return &Cache{db: db} }

// Key content-addresses one instantiation the same way
// mangle.ShortHash/template.MangleTemplateName do, so a cache row can be
// looked up from nothing but the template name and its already-rendered
// targ.List.CacheKey() string, without this package needing to import
// targ or node.
func Key(templateName, argsKey string) string {
	sum := sha256.Sum256([]byte(templateName + "|" + argsKey))
	return hex.EncodeToString(sum[:])
}

// Lookup returns the recorded mangled name for templateName/argsKey, if
// this cache has ever recorded one.
func (c *Cache) Lookup(templateName, argsKey string) (Instantiation, bool, error) {
	var row Instantiation
	err := c.db.Where("id = ?", Key(templateName, argsKey)).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return Instantiation{}, false, nil
		}
		return Instantiation{}, false, err
	}
	return row, true, nil
}

// Record upserts the result of one instantiation. The rendered argsKey
// is also split into its comma-separated parts and stored as a JSON array
// in Args; no method of Cache queries that column.
func (c *Cache) Record(templateName, argsKey string, kind Kind, mangledName string) error {
	var parts []string
	if argsKey != "" {
		parts = strings.Split(argsKey, ",")
	}
	argsJSON, err := json.Marshal(parts)
	if err != nil {
		return err
	}

	row := Instantiation{
		ID:           Key(templateName, argsKey),
		TemplateName: templateName,
		ArgsKey:      argsKey,
		Args:         argsJSON,
		Kind:         kind,
		MangledName:  mangledName,
	}
	return c.db.Save(&row).Error
}

// RecordDiagnostic attaches a non-fatal diagnostic message to an already
// recorded instantiation.
func (c *Cache) RecordDiagnostic(templateName, argsKey, message string) error {
	return c.db.Create(&Diagnostic{
		InstantiationID: Key(templateName, argsKey),
		Message:         message,
	}).Error
}

// DiagnosticsFor returns every diagnostic recorded against one
// instantiation, for the `dump-cache` CLI subcommand.
func (c *Cache) DiagnosticsFor(templateName, argsKey string) ([]Diagnostic, error) {
	var out []Diagnostic
	err := c.db.Where("instantiation_id = ?", Key(templateName, argsKey)).Find(&out).Error
	return out, err
}
