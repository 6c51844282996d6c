package locale

import (
	"context"
	"os"
	"sync"

	"github.com/pkg/errors"
	"go.yaml.in/yaml/v4"
)

// DefaultLanguage is used when the context carries no language.
const DefaultLanguage = 1

const StatusKeyPrefix = "Plugins.Tracking.AfterShip.Status."

var defaults = map[string]string{
	StatusKeyPrefix + "Pending":        "New shipments added that are pending to track, or new shipments without tracking information available yet.",
	StatusKeyPrefix + "InfoReceived":   "Carrier has received request from shipper and is about to pick up the shipment.",
	StatusKeyPrefix + "InTransit":      "Carrier has accepted or picked up shipment from shipper. The shipment is on the way.",
	StatusKeyPrefix + "OutForDelivery": "Carrier is about to deliver the shipment, or it is ready to pickup.",
	StatusKeyPrefix + "AttemptFail":    "Carrier attempted to deliver but failed, and usually leaves a notice and will try to deliver again.",
	StatusKeyPrefix + "Delivered":      "The shipment was delivered successfully.",
	StatusKeyPrefix + "Expired":        "Shipment has no tracking information for 7 days since added, or has no further updates for 30 days since last update.",
	StatusKeyPrefix + "Exception":      "Custom hold, undelivered, returned shipment to sender or any shipping exceptions.",

	"Plugins.Tracking.AfterShip.ApiKey":                         "API Key",
	"Plugins.Tracking.AfterShip.ApiKey.Hint":                    "Specify AfterShip API Key.",
	"Plugins.Tracking.AfterShip.AfterShipUsername":              "AfterShip Username",
	"Plugins.Tracking.AfterShip.AfterShipUsername.Hint":         "Specify AfterShip Username.",
	"Plugins.Tracking.AfterShip.AllowCustomerNotification":      "Allow Customer Notification",
	"Plugins.Tracking.AfterShip.AllowCustomerNotification.Hint": "Check to allow customer email/sms notification from AfterShip service.",
}

// Localizer resolves a resource key for a language.
type Localizer interface {
	Resolve(key string, languageID int) string
}

// Catalog holds resource strings per language. A missing translation falls
// back to DefaultLanguage, then the built-in English strings, then the key.
type Catalog struct {
	mu    sync.RWMutex
	langs map[int]map[string]string
}

func NewCatalog() *Catalog {
	c := &Catalog{langs: map[int]map[string]string{}}
	c.Merge(DefaultLanguage, defaults)
	return c
}

// Merge adds or replaces strings of one language.
func (c *Catalog) Merge(languageID int, strs map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.langs[languageID]
	if !ok {
		m = make(map[string]string, len(strs))
		c.langs[languageID] = m
	}
	for k, v := range strs {
		m[k] = v
	}
}

func (c *Catalog) Resolve(key string, languageID int) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.langs[languageID][key]; ok {
		return v
	}
	if v, ok := c.langs[DefaultLanguage][key]; ok {
		return v
	}
	if v, ok := defaults[key]; ok {
		return v
	}
	return key
}

type catalogFile struct {
	Languages map[int]map[string]string `yaml:"languages"`
}

// LoadFile merges a YAML file of the form
//
//	languages:
//	  2:
//	    Plugins.Tracking.AfterShip.Status.Delivered: "Zugestellt"
func (c *Catalog) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read locale file")
	}
	var f catalogFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return errors.Wrap(err, "parse locale file")
	}
	for id, strs := range f.Languages {
		c.Merge(id, strs)
	}
	return nil
}

type languageKey struct{}

func WithLanguage(ctx context.Context, languageID int) context.Context {
	return context.WithValue(ctx, languageKey{}, languageID)
}

// LanguageFrom returns DefaultLanguage when none is set.
func LanguageFrom(ctx context.Context) int {
	if id, ok := ctx.Value(languageKey{}).(int); ok && id > 0 {
		return id
	}
	return DefaultLanguage
}
