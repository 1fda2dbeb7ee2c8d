package headers

// Merge combines caller headers with the common and per-method defaults.
//
// Defaults are built from common, then method entries replace any header of
// the same name regardless of case. Computed values on both sides are
// resolved independently. A default is copied into the result only when no
// caller header has the same name, compared case-insensitively, so caller
// headers always win and keep their own spelling. Neither input is modified.
func Merge(request, common, method Map) Map {
	defaults := common.Clone()
	for k, v := range method {
		defaults.Set(k, v)
	}
	defaults.Resolve()

	merged := request.Clone().Resolve()
	for k, v := range defaults {
		if merged.Has(k) {
			continue
		}
		merged[k] = v
	}
	return merged
}
