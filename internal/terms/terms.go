package terms

import "maps"

// Dictionary translates attribute names between the common vocabulary used by
// callers and the vocabulary of the remote API. It is read-only once built.
type Dictionary struct {
	toAPI    map[string]string // common name -> API name
	toCommon map[string]string // API name -> common name
}

// New builds a Dictionary from a common->API mapping.
// The mapping is expected to be bijective; on duplicate API names the last
// key seen wins for the reverse direction.
func New(commonToAPI map[string]string) *Dictionary {
	d := &Dictionary{
		toAPI:    make(map[string]string, len(commonToAPI)),
		toCommon: make(map[string]string, len(commonToAPI)),
	}
	maps.Copy(d.toAPI, commonToAPI)
	for common, api := range commonToAPI {
		d.toCommon[api] = common
	}
	return d
}

// APITerm returns the common name whose API name equals value, or value itself.
func (d *Dictionary) APITerm(value string) string {
	if d == nil {
		return value
	}
	if common, ok := d.toCommon[value]; ok {
		return common
	}
	return value
}

// CommonTerm returns the API name mapped by the common name value, or value itself.
func (d *Dictionary) CommonTerm(value string) string {
	if d == nil {
		return value
	}
	if api, ok := d.toAPI[value]; ok {
		return api
	}
	return value
}

// ToCommon returns a copy of raw with every key renamed through APITerm.
func (d *Dictionary) ToCommon(raw map[string]any) map[string]any {
	return renameKeys(raw, d.APITerm)
}

// ToAPI returns a copy of attrs with every key renamed through CommonTerm.
func (d *Dictionary) ToAPI(attrs map[string]any) map[string]any {
	return renameKeys(attrs, d.CommonTerm)
}

// Len reports the number of mapped terms.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.toAPI)
}

func renameKeys(in map[string]any, rename func(string) string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[rename(k)] = v
	}
	return out
}
