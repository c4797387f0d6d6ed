package fieldspec

// Override is a per-request change to a FieldSpec. Nil members keep the base value.
type Override struct {
	Weight            *float64
	Tokenize          *bool
	Exact             *bool
	Required          *bool
	AllowPartialMatch *bool
	Highlight         *bool
}

// IsZero reports whether the override changes nothing.
func (o Override) IsZero() bool {
	return o.Weight == nil && o.Tokenize == nil && o.Exact == nil &&
		o.Required == nil && o.AllowPartialMatch == nil && o.Highlight == nil
}

// Apply returns a copy of f with the override merged in. f is not modified.
func (o Override) Apply(f FieldSpec) FieldSpec {
	opts := f.Options()
	if o.Weight != nil && *o.Weight >= 0 {
		opts.Weight = *o.Weight
	}
	if o.Tokenize != nil {
		opts.Tokenize = *o.Tokenize
	}
	if o.Exact != nil {
		opts.Exact = *o.Exact
	}
	if o.Required != nil {
		opts.Required = *o.Required
	}
	if o.AllowPartialMatch != nil {
		opts.AllowPartialMatch = *o.AllowPartialMatch
	}
	if o.Highlight != nil {
		opts.Highlight = *o.Highlight
	}
	return Reconstruct(f.name, f.valueType, opts)
}
