package campaign

import (
	"fmt"

	"github.com/admarket/backend/internal/domain/shared"
)

// CodeCampaignNotFound is returned when a campaign ID does not resolve
const CodeCampaignNotFound = "CAMPAIGN_NOT_FOUND"

var ErrCampaignNotFound = shared.NewDomainError(CodeCampaignNotFound, "Campaign not found")

// ErrInvalidTransition reports an event applied in the wrong status
func ErrInvalidTransition(event Event, current Status) *shared.DomainError {
	return shared.NewDomainError(shared.CodeInvalidStateTransition,
		fmt.Sprintf("Cannot %s campaign in %s status (requires %s)", event, current, RequiredStatus(event)))
}
