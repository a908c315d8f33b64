package v3

import (
	"math"

	"millscope/internal/calculator"
)

// roundIndicatorGroupsInPlace 指标值保留两位小数
func roundIndicatorGroupsInPlace(groups []calculator.IndicatorGroup) {
	for gi := range groups {
		for ii := range groups[gi].Indicators {
			if v := groups[gi].Indicators[ii].Value; v != nil {
				rounded := math.Round(*v*100) / 100
				groups[gi].Indicators[ii].Value = &rounded
			}
		}
	}
}
