package types

// Settings Bundle keys as they appear in the injected mapping.
const (
	KeyCSRFToken          = "csrfToken"
	KeyAPIPointsURL       = "apiPointsUrl"
	KeyAPIUploadURL       = "apiUploadUrl"
	KeyAPIKmlUploadURL    = "apiKmlUploadUrl"
	KeyAPIStationNamesURL = "apiStationNamesUrl"
	KeyAPICSRFURL         = "apiCsrfUrl"
)

// SettingsKeys lists every recognized Settings Bundle key.
var SettingsKeys = []string{
	KeyCSRFToken,
	KeyAPIPointsURL,
	KeyAPIUploadURL,
	KeyAPIKmlUploadURL,
	KeyAPIStationNamesURL,
	KeyAPICSRFURL,
}

// Settings is the externally supplied configuration bundle consumed at
// startup. Every field is optional; an empty URL disables the feature that
// depends on it.
type Settings struct {
	CSRFToken          string `json:"csrfToken,omitempty" yaml:"csrfToken,omitempty" mapstructure:"csrfToken"`
	APIPointsURL       string `json:"apiPointsUrl,omitempty" yaml:"apiPointsUrl,omitempty" mapstructure:"apiPointsUrl"`
	APIUploadURL       string `json:"apiUploadUrl,omitempty" yaml:"apiUploadUrl,omitempty" mapstructure:"apiUploadUrl"`
	APIKmlUploadURL    string `json:"apiKmlUploadUrl,omitempty" yaml:"apiKmlUploadUrl,omitempty" mapstructure:"apiKmlUploadUrl"`
	APIStationNamesURL string `json:"apiStationNamesUrl,omitempty" yaml:"apiStationNamesUrl,omitempty" mapstructure:"apiStationNamesUrl"`
	APICSRFURL         string `json:"apiCsrfUrl,omitempty" yaml:"apiCsrfUrl,omitempty" mapstructure:"apiCsrfUrl"`
}

// DefaultEndpoints returns the endpoint paths served by the backend's URL map.
// geoclient init writes these into config.yaml; they are not applied to a
// missing bundle.
func DefaultEndpoints() Settings {
	return Settings{
		APIPointsURL:       "/api/points/",
		APIUploadURL:       "/api/upload-rinex/",
		APIKmlUploadURL:    "/api/upload-kml/",
		APIStationNamesURL: "/api/station-names/",
		APICSRFURL:         "/api/get-csrf-token/",
	}
}

// SettingsFromMap builds a Settings from a flat string mapping. Unknown keys
// are ignored. A nil map yields the empty bundle.
func SettingsFromMap(m map[string]string) Settings {
	return Settings{
		CSRFToken:          m[KeyCSRFToken],
		APIPointsURL:       m[KeyAPIPointsURL],
		APIUploadURL:       m[KeyAPIUploadURL],
		APIKmlUploadURL:    m[KeyAPIKmlUploadURL],
		APIStationNamesURL: m[KeyAPIStationNamesURL],
		APICSRFURL:         m[KeyAPICSRFURL],
	}
}

// Map returns the bundle as a flat mapping holding only non-empty fields.
func (s Settings) Map() map[string]string {
	m := make(map[string]string, len(SettingsKeys))
	put := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	put(KeyCSRFToken, s.CSRFToken)
	put(KeyAPIPointsURL, s.APIPointsURL)
	put(KeyAPIUploadURL, s.APIUploadURL)
	put(KeyAPIKmlUploadURL, s.APIKmlUploadURL)
	put(KeyAPIStationNamesURL, s.APIStationNamesURL)
	put(KeyAPICSRFURL, s.APICSRFURL)
	return m
}

// Merge returns s with every non-empty field of over applied on top.
func (s Settings) Merge(over Settings) Settings {
	pick := func(base, o string) string {
		if o != "" {
			return o
		}
		return base
	}
	return Settings{
		CSRFToken:          pick(s.CSRFToken, over.CSRFToken),
		APIPointsURL:       pick(s.APIPointsURL, over.APIPointsURL),
		APIUploadURL:       pick(s.APIUploadURL, over.APIUploadURL),
		APIKmlUploadURL:    pick(s.APIKmlUploadURL, over.APIKmlUploadURL),
		APIStationNamesURL: pick(s.APIStationNamesURL, over.APIStationNamesURL),
		APICSRFURL:         pick(s.APICSRFURL, over.APICSRFURL),
	}
}

// WithCSRFToken returns a copy of s whose token field is back-filled from tok.
// A token already present in s is kept.
func (s Settings) WithCSRFToken(tok CSRFToken) Settings {
	if s.CSRFToken == "" && tok.Present() {
		s.CSRFToken = tok.Value
	}
	return s
}
