package model

import "encoding/json"

// OptionalString distinguishes a field that was absent from one that was
// sent. A sent null or empty string has Set true and Value nil.
type OptionalString struct {
	Set   bool
	Value *string
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	o.Value = nil
	if string(data) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s != "" {
		o.Value = &s
	}
	return nil
}

// ProfilePatch is a partial update of the mutable Identity fields.
type ProfilePatch struct {
	NickName OptionalString `json:"nickName"`
	Avatar   OptionalString `json:"avatar"`
	Email    OptionalString `json:"email"`
	Phone    OptionalString `json:"phone"`
}

// Columns returns the identity columns the patch sets, keyed by column name.
func (p *ProfilePatch) Columns() map[string]*string {
	cols := map[string]*string{}
	for _, f := range []struct {
		name  string
		field OptionalString
	}{
		{"NickName", p.NickName},
		{"Avatar", p.Avatar},
		{"Email", p.Email},
		{"Phone", p.Phone},
	} {
		if f.field.Set {
			cols[f.name] = f.field.Value
		}
	}
	return cols
}

// Apply writes the patch onto identity.
func (p *ProfilePatch) Apply(identity *Identity) {
	if p.NickName.Set {
		identity.NickName = p.NickName.Value
	}
	if p.Avatar.Set {
		identity.Avatar = p.Avatar.Value
	}
	if p.Email.Set {
		identity.Email = p.Email.Value
	}
	if p.Phone.Set {
		identity.Phone = p.Phone.Value
	}
}
