package access

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestProjectAnonymousSupplier(t *testing.T) {
	c := mustClassifier(t)
	engine, projector := NewEngine(c), NewProjector(c)

	d := engine.Decide(Anonymous(), ResourceSupplier, acmeSupplier(), Facts{})
	safe, err := projector.Project(ResourceSupplier, acmeSupplier().Record(), d)
	require.NoError(t, err)

	assert.Equal(t, "Acme", safe.Fields["company_name"])
	assert.Equal(t, 4.5, safe.Fields["rating"])
	assert.Nil(t, safe.Fields["phone"])
	assert.Nil(t, safe.Fields["business_location"], "public but not anonymous")
	assert.False(t, safe.Capabilities["can_view_contact"])
	assert.Equal(t, RestrictedPlaceholder, safe.Redacted["phone"])
	assert.NotContains(t, safe.Redacted, "payment_details", "confidential fields carry no placeholder")
	assert.Empty(t, safe.Disclosed)
	assert.Equal(t, ReasonAnonymous, safe.Reason)
}

func TestProjectEngagedSupplier(t *testing.T) {
	c := mustClassifier(t)
	d := NewEngine(c).Decide(builder(), ResourceSupplier, fullSupplier(), Facts{IsCounterparty: true, HasAcceptedEngagement: true})

	safe, err := NewProjector(c).Project(ResourceSupplier, fullSupplier().Record(), d)
	require.NoError(t, err)

	assert.Equal(t, "+254711111111", safe.Fields["phone"])
	assert.Equal(t, "KCB 0011223344", safe.Fields["payment_details"])
	assert.True(t, safe.Capabilities["can_view_contact"])
	assert.True(t, safe.Capabilities["can_view_payment"])
	assert.Empty(t, safe.Redacted)
	assert.Equal(t, []string{"address", "contact_person", "email", "payment_details", "phone"}, safe.Disclosed)
}

func TestProjectCompositeRedactedWhole(t *testing.T) {
	c := mustClassifier(t)
	d := NewEngine(c).Decide(builder(), ResourceDelivery, sampleDelivery("pending"), Facts{IsOwner: true})

	safe, err := NewProjector(c).Project(ResourceDelivery, sampleDelivery("pending").Record(), d)
	require.NoError(t, err)

	assert.Nil(t, safe.Fields["current_location"])
	assert.Equal(t, "Plot 12, Kilimani", safe.Fields["delivery_address"])
	assert.True(t, safe.Capabilities["can_view_address"])
	assert.False(t, safe.Capabilities["can_view_location"])
	assert.False(t, safe.Capabilities["can_view_contact"])
}

func TestProjectUnknownFieldFails(t *testing.T) {
	c := mustClassifier(t)
	rec := acmeSupplier().Record()
	rec["kra_pin"] = "P0000"

	_, err := NewProjector(c).Project(ResourceSupplier, rec, PublicOnly(ReasonAnonymous, false, ActionView))
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "kra_pin", cfgErr.Field)
}

func TestProjectIsIdempotent(t *testing.T) {
	c := mustClassifier(t)
	projector := NewProjector(c)
	engine := NewEngine(c)

	principals := []struct {
		p     Principal
		facts Facts
	}{
		{Anonymous(), Facts{}},
		{stranger(), Facts{}},
		{provider(), Facts{IsCounterparty: true}},
		{builder(), Facts{IsOwner: true}},
		{admin(), Facts{IsAdmin: true}},
	}
	for _, tc := range principals {
		d := engine.Decide(tc.p, ResourceDelivery, sampleDelivery("pending"), tc.facts)
		once, err := projector.Project(ResourceDelivery, sampleDelivery("pending").Record(), d)
		require.NoError(t, err)
		twice, err := projector.Project(ResourceDelivery, once.Fields, d)
		require.NoError(t, err)
		assert.Equal(t, once.Fields, twice.Fields, tc.p.ProfileID)
		assert.Equal(t, once.Capabilities, twice.Capabilities, tc.p.ProfileID)
	}
}

func TestProjectNoLeakage(t *testing.T) {
	c := mustClassifier(t)
	projector := NewProjector(c)
	engine := NewEngine(c)

	resources := []Resource{fullSupplier(), sampleDelivery("pending"), sampleDelivery("delivered")}
	principals := []Principal{Anonymous(), stranger(), provider(), builder(), supplierPrincipal()}
	for _, res := range resources {
		for _, p := range principals {
			facts := Facts{IsOwner: res.OwnerRef() == p.ProfileID}
			d := engine.Decide(p, res.Type(), res, facts)
			safe, err := projector.Project(res.Type(), res.Record(), d)
			require.NoError(t, err)
			for field, value := range safe.Fields {
				if value == nil {
					continue
				}
				fc, err := c.Field(res.Type(), field)
				require.NoError(t, err)
				assert.True(t, d.VisibleTiers().Has(fc.Tier), "%s leaked %s to %q", res.Type(), field, p.ProfileID)
			}
		}
	}
}

func TestSafeRecordJSONAndLocalize(t *testing.T) {
	c := mustClassifier(t)
	d := NewEngine(c).Decide(Anonymous(), ResourceSupplier, acmeSupplier(), Facts{})
	safe, err := NewProjector(c).Project(ResourceSupplier, acmeSupplier().Record(), d)
	require.NoError(t, err)
	safe.ResourceID = "sup-1"

	sw := safe.Localize(PlaceholderLanguage("sw-KE,sw;q=0.9,en;q=0.5"))
	assert.Equal(t, "Mawasiliano yanapatikana kwa washirika wa biashara", sw.Redacted["phone"])
	assert.Equal(t, RestrictedPlaceholder, safe.Redacted["phone"], "localize must not mutate the original")

	raw, err := json.Marshal(safe)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "sup-1", body["id"])
	assert.Equal(t, "Acme", body["company_name"])
	assert.Nil(t, body["phone"])
	assert.Contains(t, body, "phone")
	assert.Equal(t, false, body["can_view_contact"])
	assert.Equal(t, ReasonAnonymous, body["reason"])
}

func TestPlaceholderLanguageFallback(t *testing.T) {
	assert.Equal(t, language.English, PlaceholderLanguage(""))
	assert.Equal(t, language.English, PlaceholderLanguage("fr-FR"))
	assert.Equal(t, language.English, PlaceholderLanguage("%%%"))
}
