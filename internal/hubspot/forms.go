package hubspot

import (
	"fmt"
	"net/http"
	"strings"

	"hsrelay/internal/visitors"
)

// Form metadata keys that are never submitted as v2 or v3 field values.
var formMetaKeys = []string{"formId", "formClass", "accountId"}

// Keys excluded from collected-form values. formId and formClass stay.
var collectedFormReservedKeys = []string{
	"timestamp",
	"email",
	"firstName",
	"lastName",
	"identifyEmail",
	"identifyUserId",
	"po",
}

// Keys excluded from v2 and v3 form submissions besides the metadata keys.
// Contact fields stay, those endpoints expect them as regular fields.
var submittedFormReservedKeys = []string{
	"timestamp",
	"identifyEmail",
	"identifyUserId",
	"po",
}

// HubSpot contact property names for the camel-cased payload keys.
var contactPropertyNames = map[string]string{
	"email":     "email",
	"firstName": "firstname",
	"lastName":  "lastname",
}

// PortalID returns the account a form event is submitted to: the payload's
// accountId when present, otherwise the configured one.
func PortalID(settings Settings, payload Payload) string {
	if id := payload.Get("accountId"); id != "" {
		return id
	}
	return settings.AccountID
}

// ContactFields are the identity fields of a collected form.
type ContactFields struct {
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
}

// CollectedForm is the JSON body of the collected-forms endpoint.
type CollectedForm struct {
	ContactFields        ContactFields `json:"contactFields"`
	FormSelectorClasses  *string       `json:"formSelectorClasses,omitempty"`
	CollectedFormClasses *string       `json:"collectedFormClasses,omitempty"`
	FormSelectorID       *string       `json:"formSelectorId,omitempty"`
	CollectedFormID      *string       `json:"collectedFormId,omitempty"`
	FormValues           Payload       `json:"formValues"`
	PageTitle            string        `json:"pageTitle"`
	PageURL              string        `json:"pageUrl"`
	PortalID             string        `json:"portalId"`
	Type                 string        `json:"type"`
	UTK                  *string       `json:"utk,omitempty"`
	UUID                 string        `json:"uuid"`
	Version              string        `json:"version"`
}

// NewCollectedForm maps a form event onto the collected-forms body.
func NewCollectedForm(settings Settings, payload Payload, client ClientContext, utk string) CollectedForm {
	form := CollectedForm{
		ContactFields: ContactFields{
			Email:     lookupPtr(payload, "email"),
			FirstName: lookupPtr(payload, "firstName"),
			LastName:  lookupPtr(payload, "lastName"),
		},
		FormValues: payload.Without(collectedFormReservedKeys...),
		PageTitle:  client.Title,
		PageURL:    client.URL,
		PortalID:   PortalID(settings, payload),
		Type:       "SCRAPED",
		UUID:       visitors.NewUUID(),
		Version:    formsVersion,
	}

	if formClass, ok := payload.Lookup("formClass"); ok {
		formClass = strings.TrimSpace(formClass)
		selectors := strings.Fields(formClass)
		for i, class := range selectors {
			selectors[i] = "." + class
		}
		joined := strings.Join(selectors, ", ")
		form.FormSelectorClasses = &joined
		form.CollectedFormClasses = &formClass
	}

	if formID, ok := payload.Lookup("formId"); ok {
		formID = normalizeFormID(formID)
		selector := formID
		if formID != "" {
			selector = "#" + formID
		}
		form.FormSelectorID = &selector
		form.CollectedFormID = &formID
	}

	if utk != "" {
		form.UTK = &utk
	}

	return form
}

// CollectedFormRequest builds the JSON submission to the collected-forms
// endpoint.
func CollectedFormRequest(settings Settings, payload Payload, client ClientContext, utk string) (Request, error) {
	body, err := marshalJSON(NewCollectedForm(settings, payload, client, utk))
	if err != nil {
		return Request{}, fmt.Errorf("encode collected form: %w", err)
	}

	return Request{
		Kind:     KindCollectedForm,
		Method:   http.MethodPost,
		URL:      fmt.Sprintf("https://forms%s.hubspot.com/collected-forms/submit/form", RegionSuffix(settings.RegionPrefix)),
		Headers:  map[string]string{"Content-Type": "application/json"},
		Body:     body,
		Redirect: RedirectFollow,
	}, nil
}

type legacyContext struct {
	HUTK      *string `json:"hutk,omitempty"`
	IPAddress string  `json:"ipAddress"`
	PageURL   string  `json:"pageUrl"`
	PageName  string  `json:"pageName"`
}

// LegacyFormRequest builds the urlencoded submission to the v2 uploads
// endpoint. The endpoint answers with a redirect on success, so the host must
// not follow it.
func LegacyFormRequest(settings Settings, payload Payload, client ClientContext, utk string) (Request, error) {
	hsContext := legacyContext{
		IPAddress: client.IP,
		PageURL:   client.URL,
		PageName:  client.Title,
	}
	if utk != "" {
		hsContext.HUTK = &utk
	}

	encoded, err := marshalJSON(hsContext)
	if err != nil {
		return Request{}, fmt.Errorf("encode hs_context: %w", err)
	}

	parts := []string{"hs_context=" + formEscape(string(encoded))}
	for _, f := range payload.Without(formMetaKeys...).Without(submittedFormReservedKeys...).Fields() {
		parts = append(parts, formEscape(f.Key)+"="+formEscape(f.Value))
	}

	return Request{
		Kind:     KindLegacyForm,
		Method:   http.MethodPost,
		URL:      fmt.Sprintf("https://forms%s.hubspot.com/uploads/form/v2/%s/%s", RegionSuffix(settings.RegionPrefix), PortalID(settings, payload), normalizeFormID(payload.Get("formId"))),
		Headers:  map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		Body:     []byte(strings.Join(parts, "&")),
		Redirect: RedirectManual,
	}, nil
}

// IntegrationField is one submitted value of a v3 integration submission.
type IntegrationField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// IntegrationContext carries the page and visitor context of a v3 submission.
type IntegrationContext struct {
	HUTK      *string `json:"hutk,omitempty"`
	PageURI   string  `json:"pageUri"`
	PageName  string  `json:"pageName"`
	IPAddress string  `json:"ipAddress,omitempty"`
}

// IntegrationForm is the JSON body of the v3 integration submit endpoint.
type IntegrationForm struct {
	Fields  []IntegrationField `json:"fields"`
	Context IntegrationContext `json:"context"`
}

// NewIntegrationForm maps a form event onto a v3 submission. Empty values are
// skipped.
func NewIntegrationForm(payload Payload, client ClientContext, utk string) IntegrationForm {
	form := IntegrationForm{
		Fields: []IntegrationField{},
		Context: IntegrationContext{
			PageURI:   client.URL,
			PageName:  client.Title,
			IPAddress: client.IP,
		},
	}
	if utk != "" {
		form.Context.HUTK = &utk
	}

	for _, f := range payload.Without(formMetaKeys...).Without(submittedFormReservedKeys...).Fields() {
		if f.Value == "" {
			continue
		}
		name := f.Key
		if property, ok := contactPropertyNames[name]; ok {
			name = property
		}
		form.Fields = append(form.Fields, IntegrationField{Name: name, Value: f.Value})
	}
	return form
}

// IntegrationFormRequest builds the JSON submission to the v3 integration
// endpoint. That API is global and takes no region suffix.
func IntegrationFormRequest(settings Settings, payload Payload, client ClientContext, utk string) (Request, error) {
	body, err := marshalJSON(NewIntegrationForm(payload, client, utk))
	if err != nil {
		return Request{}, fmt.Errorf("encode integration form: %w", err)
	}

	return Request{
		Kind:     KindIntegrationForm,
		Method:   http.MethodPost,
		URL:      fmt.Sprintf("https://api.hsforms.com/submissions/v3/integration/submit/%s/%s", PortalID(settings, payload), normalizeFormID(payload.Get("formId"))),
		Headers:  map[string]string{"Content-Type": "application/json"},
		Body:     body,
		Redirect: RedirectFollow,
	}, nil
}

func normalizeFormID(formID string) string {
	return strings.TrimPrefix(strings.TrimSpace(formID), "#")
}

func lookupPtr(payload Payload, key string) *string {
	v, ok := payload.Lookup(key)
	if !ok {
		return nil
	}
	return &v
}
