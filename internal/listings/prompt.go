package listings

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jbcholat-Dev/Estimation-immo/internal/models"
)

func formatPrice(v float64) string {
	if v <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.0f", v)
}

func buildSearchPrompt(q Query) string {
	propertyType := q.PropertyType
	if propertyType == "" {
		propertyType = "all"
	}
	radius := q.RadiusKm
	if radius <= 0 {
		radius = 5
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recherche les biens immobiliers actuellement à vendre dans %s (%s), dans un rayon de %gkm.\n\n", q.City, q.PostalCode, radius)
	b.WriteString("Critères de recherche:\n")
	fmt.Fprintf(&b, "- Localité: %s\n", q.City)
	fmt.Fprintf(&b, "- Code postal: %s\n", q.PostalCode)
	fmt.Fprintf(&b, "- Type de bien: %s\n", propertyType)
	if q.PriceMin > 0 || q.PriceMax > 0 {
		fmt.Fprintf(&b, "- Fourchette de prix: %s - %s euros\n", formatPrice(q.PriceMin), formatPrice(q.PriceMax))
	}
	fmt.Fprintf(&b, "- Rayon: %gkm\n\n", radius)
	b.WriteString(`Retourne un objet JSON {"properties": [...]} où chaque bien a les champs suivants:
{
    "address": "adresse complète",
    "price": prix_en_euros,
    "surface": surface_en_m2,
    "rooms": nombre_de_pieces,
    "property_type": "type_bien",
    "listing_url": "url_de_l_annonce_ou_source",
    "publication_date": "date_YYYY-MM-DD_ou_N/A",
    "description": "description_courte"
}

Retourne SEULEMENT le JSON valide sans texte supplémentaire. Si pas de résultats, retourne: {"properties": []}
`)
	return b.String()
}

// stripCodeFence removes a surrounding ```json ... ``` block.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```")
	if i := strings.IndexByte(content, '\n'); i >= 0 {
		content = content[i+1:]
	} else {
		content = strings.TrimPrefix(content, "json")
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

// parseListings decodes the {"properties": [...]} payload. Items that do
// not decode into a listing are dropped; validation is left to the caller.
func parseListings(content string) ([]models.Listing, error) {
	var envelope struct {
		Properties []json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	if envelope.Properties == nil {
		return nil, errors.New("no properties field in response")
	}

	listings := make([]models.Listing, 0, len(envelope.Properties))
	for _, raw := range envelope.Properties {
		var l models.Listing
		if err := json.Unmarshal(raw, &l); err != nil {
			continue
		}
		listings = append(listings, l)
	}
	return listings, nil
}
