package logic

// WifiMatch is the outcome of evaluating one scan.
type WifiMatch struct {
	TargetFound  bool
	NetworkCount int
	MinReached   bool
}

// Met reports whether either sub-check passed.
func (m WifiMatch) Met() bool {
	return m.TargetFound || m.MinReached
}

// EvaluateScan checks a scan result list against the target network name and
// the minimum visible network count. An empty target disables the name check;
// minNetworks <= 0 disables the count check.
func EvaluateScan(ssids []string, target string, minNetworks int) WifiMatch {
	m := WifiMatch{NetworkCount: len(ssids)}
	if target != "" {
		for _, s := range ssids {
			if s == target {
				m.TargetFound = true
				break
			}
		}
	}
	if minNetworks > 0 && len(ssids) >= minNetworks {
		m.MinReached = true
	}
	return m
}
