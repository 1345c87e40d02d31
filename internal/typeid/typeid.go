package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixDesign  = "dsn"
	PrefixElement = "el"
	PrefixAsset   = "asset"
	PrefixExport  = "exp"
	PrefixSession = "sess"
	PrefixOp      = "op"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewDesignID() string  { return New(PrefixDesign) }
func NewElementID() string { return New(PrefixElement) }
func NewAssetID() string   { return New(PrefixAsset) }
func NewExportID() string  { return New(PrefixExport) }
func NewSessionID() string { return New(PrefixSession) }
func NewOpID() string      { return New(PrefixOp) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
