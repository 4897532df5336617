package catalog

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/crownside/storefront/internal/domain"
)

// The upstream catalog mixes field naming conventions across collections, so
// each attribute is resolved from a list of known aliases in priority order.
var (
	idKeys       = []string{"id", "_id", "id_producto"}
	nameKeys     = []string{"name", "nombre"}
	priceKeys    = []string{"price", "precio", "precio_preventa"}
	imageKeys    = []string{"image", "imagen", "imagenUrl", "mainImage"}
	descKeys     = []string{"description", "descripcion"}
	stockKeys    = []string{"stock", "existencias"}
	categoryKeys = []string{"category", "categoria"}
	galleryKeys  = []string{"additionalImages", "imagenesAdicionales"}
	releaseKeys  = []string{"presaleEndDate", "fechaLanzamiento"}
	shippingKeys = []string{"estimatedShippingDate", "fecha_envio_estimada"}
)

// normalizeItem maps a raw upstream document onto a CatalogItem. Documents
// without a usable id, name, or price are dropped rather than surfaced broken.
func normalizeItem(raw map[string]any, currency string, presale bool) (domain.CatalogItem, bool) {
	id := firstString(raw, idKeys)
	name := firstString(raw, nameKeys)
	price, priceOK := firstPrice(raw, priceKeys)
	if id == "" || name == "" || !priceOK {
		return domain.CatalogItem{}, false
	}

	item := domain.CatalogItem{
		ID:               id,
		Name:             name,
		Description:      firstString(raw, descKeys),
		Price:            price,
		Currency:         currency,
		ImageURL:         firstString(raw, imageKeys),
		AdditionalImages: stringList(raw, galleryKeys),
		Stock:            firstCount(raw, stockKeys),
		Category:         firstString(raw, categoryKeys),
	}

	if presale {
		info := &domain.PresaleInfo{
			ReleaseAt:         firstTime(raw, releaseKeys),
			EstimatedShipping: firstTime(raw, shippingKeys),
		}
		if exclusive, ok := raw["isExclusive"].(bool); ok {
			info.Exclusive = exclusive
		}
		item.Presale = info
	}

	return item, true
}

func firstString(raw map[string]any, keys []string) string {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// firstPrice converts an upstream price in major units to minor units,
// rounding half away from zero. Negative and non-numeric prices are rejected.
func firstPrice(raw map[string]any, keys []string) (int64, bool) {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok {
			continue
		}
		var major float64
		switch v := value.(type) {
		case float64:
			major = v
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				continue
			}
			major = parsed
		default:
			continue
		}
		if major < 0 || math.IsNaN(major) || math.IsInf(major, 0) {
			return 0, false
		}
		return int64(math.Round(major * 100)), true
	}
	return 0, false
}

func stringList(raw map[string]any, keys []string) []string {
	for _, key := range keys {
		values, ok := raw[key].([]any)
		if !ok {
			continue
		}
		var out []string
		for _, value := range values {
			if str, ok := value.(string); ok {
				if trimmed := strings.TrimSpace(str); trimmed != "" {
					out = append(out, trimmed)
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// firstCount reads a non-negative integer count, ignoring malformed values.
func firstCount(raw map[string]any, keys []string) int64 {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok {
			continue
		}
		number, ok := value.(float64)
		if !ok || number < 0 || math.IsNaN(number) || math.IsInf(number, 0) {
			continue
		}
		return int64(number)
	}
	return 0
}

func firstTime(raw map[string]any, keys []string) *time.Time {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok {
			continue
		}
		str, ok := value.(string)
		if !ok {
			continue
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, strings.TrimSpace(str)); err == nil {
				utc := parsed.UTC()
				return &utc
			}
		}
	}
	return nil
}
