package persistence

import (
	"strings"

	"github.com/admarket/backend/internal/domain/campaign"
)

// ValidateSortOrder normalizes a sort direction to ASC or DESC, defaulting
// to DESC
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when it is whitelisted and
// defaultField otherwise. Only whitelisted names reach ORDER BY.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CampaignSortFields are the campaign columns a listing may sort by. The
// service rejects anything else before it gets here.
var CampaignSortFields = campaign.SortFields

// orderBy builds a whitelisted ORDER BY clause
func orderBy(sortField, sortOrder string, allowed map[string]bool, defaultField string) string {
	return ValidateSortField(sortField, allowed, defaultField) + " " + ValidateSortOrder(sortOrder)
}
