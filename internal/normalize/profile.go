package normalize

// Profile is the normalized patient profile. Absent fields are nil.
type Profile struct {
	Type        *string `json:"tipo"`
	Number      *string `json:"numero"`
	BirthDate   *string `json:"fechaNacimiento"`
	Sex         *string `json:"sexo"`
	Mobile      *string `json:"celular"`
	Address     *string `json:"direccion"`
	Email       *string `json:"correo"`
	FullName    *string `json:"nombreCompleto"`
	Insurer     *string `json:"eps"`
	InsurerCode *string `json:"eps_codigo"`
	InsurerName *string `json:"eps_nombre"`

	Raw Record `json:"-"`
}

// NormalizeProfile builds a profile from a backend record. It never fails;
// unknown shapes produce an all-nil profile.
func NormalizeProfile(r Record) Profile {
	p := Profile{
		Type:        resolve(r, ProfileAliases[FieldDocType]),
		Number:      resolve(r, ProfileAliases[FieldDocNumber]),
		BirthDate:   resolve(r, ProfileAliases[FieldBirthDate]),
		Sex:         resolve(r, ProfileAliases[FieldSex]),
		Mobile:      resolve(r, ProfileAliases[FieldMobile]),
		Address:     resolve(r, ProfileAliases[FieldAddress]),
		Email:       resolve(r, ProfileAliases[FieldEmail]),
		FullName:    fullName(r),
		Insurer:     resolve(r, ProfileAliases[FieldInsurer]),
		InsurerCode: resolve(r, ProfileAliases[FieldInsurerCode]),
		InsurerName: resolve(r, ProfileAliases[FieldInsurerName]),
		Raw:         r,
	}
	return p
}

func fullName(r Record) *string {
	// A present explicit name wins even when empty.
	if v, ok := r.Lookup(FieldFullName); ok && v != nil {
		if s, ok := Stringify(v); ok {
			return &s
		}
	}
	for _, keys := range fullNameParts {
		if s := joinParts(r, keys); s != nil {
			return s
		}
	}
	return nil
}

// Record renders the profile under its canonical field names.
func (p Profile) Record() Record {
	m := map[string]any{}
	put(m, FieldDocType, p.Type)
	put(m, FieldDocNumber, p.Number)
	put(m, FieldBirthDate, p.BirthDate)
	put(m, FieldSex, p.Sex)
	put(m, FieldMobile, p.Mobile)
	put(m, FieldAddress, p.Address)
	put(m, FieldEmail, p.Email)
	put(m, FieldFullName, p.FullName)
	put(m, FieldInsurer, p.Insurer)
	put(m, FieldInsurerCode, p.InsurerCode)
	put(m, FieldInsurerName, p.InsurerName)
	return Record{fields: m}
}
