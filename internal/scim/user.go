package scim

import "encoding/json"

// Email is one address attached to a directory record.
type Email struct {
	Value   string `json:"value"`
	Type    string `json:"type,omitempty"`
	Primary bool   `json:"primary,omitempty"`
}

// User is a normalized directory record. Every field is zero-valued when the
// source payload omits it; decoding never fails on missing optional fields.
// Records are immutable values with no identity beyond equality of ID.
type User struct {
	ID          string
	UserName    string
	Emails      []Email
	DisplayName string
	NickName    string
	FirstName   string
	LastName    string
	Roles       []string
	Timezone    string
	Active      bool
	Type        string
}

// UnmarshalJSON flattens the SCIM resource shape, pulling FirstName and
// LastName out of the nested name object.
func (u *User) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          string  `json:"id"`
		UserName    string  `json:"userName"`
		Emails      []Email `json:"emails"`
		DisplayName string  `json:"displayName"`
		NickName    string  `json:"nickName"`
		Name        struct {
			GivenName  string `json:"givenName"`
			FamilyName string `json:"familyName"`
		} `json:"name"`
		Roles    []string `json:"roles"`
		Timezone string   `json:"timezone"`
		Active   bool     `json:"active"`
		UserType string   `json:"userType"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = User{
		ID:          raw.ID,
		UserName:    raw.UserName,
		Emails:      raw.Emails,
		DisplayName: raw.DisplayName,
		NickName:    raw.NickName,
		FirstName:   raw.Name.GivenName,
		LastName:    raw.Name.FamilyName,
		Roles:       raw.Roles,
		Timezone:    raw.Timezone,
		Active:      raw.Active,
		Type:        raw.UserType,
	}
	return nil
}

// PrimaryEmail returns the primary address, falling back to the first listed.
func (u *User) PrimaryEmail() string {
	for _, e := range u.Emails {
		if e.Primary {
			return e.Value
		}
	}
	if len(u.Emails) > 0 {
		return u.Emails[0].Value
	}
	return ""
}
