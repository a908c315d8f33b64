package calculator

import (
	"sort"

	"millscope/internal/model"
)

// AverageRank 按平均 OER 排名的一行
type AverageRank struct {
	Rank   int     `json:"rank"`
	Estate string  `json:"estate"`
	AvgOER float64 `json:"avgOer"`
	Months int     `json:"months"`
}

// StabilityRank 按稳定性得分排名的一行，得分越低越稳定
type StabilityRank struct {
	Rank   int     `json:"rank"`
	Estate string  `json:"estate"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	CV     float64 `json:"cv"`
	Score  float64 `json:"score"`
}

// Ranking 各厂排名
type Ranking struct {
	ByAverage    []AverageRank   `json:"byAverage"`
	ByStability  []StabilityRank `json:"byStability"`
	BestOverall  string          `json:"bestOverall"`
	WorstOverall string          `json:"worstOverall"`
	Insights     []string        `json:"insights"`
}

// RankMills 平均 OER 降序排名与滚动窗口内的稳定性得分（0.5×SD + 0.5×CV）升序排名，同分按厂代码升序
func (c *Calculator) RankMills(records []*model.MergedRecord) Ranking {
	ranking := Ranking{
		ByAverage:   []AverageRank{},
		ByStability: []StabilityRank{},
		Insights:    []string{},
	}

	perEstate := make(map[string][]float64)
	for _, r := range records {
		if r.Estate == "" || !r.HasOERAfter() {
			continue
		}
		perEstate[r.Estate] = append(perEstate[r.Estate], *r.OERAfter)
	}
	for estate, values := range perEstate {
		ranking.ByAverage = append(ranking.ByAverage, AverageRank{
			Estate: estate,
			AvgOER: Mean(values),
			Months: len(values),
		})
	}
	sort.Slice(ranking.ByAverage, func(i, j int) bool {
		a, b := ranking.ByAverage[i], ranking.ByAverage[j]
		if a.AvgOER != b.AvgOER {
			return a.AvgOER > b.AvgOER
		}
		return a.Estate < b.Estate
	})
	for i := range ranking.ByAverage {
		ranking.ByAverage[i].Rank = i + 1
	}
	if len(ranking.ByAverage) == 0 {
		return ranking
	}

	windowed := make(map[string][]float64)
	for _, r := range RollingWindow(records, c.opts.RollingMonths) {
		if r.Estate == "" || r.OERAfter == nil {
			continue
		}
		windowed[r.Estate] = append(windowed[r.Estate], *r.OERAfter)
	}
	for estate, values := range windowed {
		st := Describe(values)
		ranking.ByStability = append(ranking.ByStability, StabilityRank{
			Estate: estate,
			Mean:   st.Mean,
			StdDev: st.StdDev,
			CV:     st.CV,
			Score:  0.5*st.StdDev + 0.5*st.CV,
		})
	}
	sort.Slice(ranking.ByStability, func(i, j int) bool {
		a, b := ranking.ByStability[i], ranking.ByStability[j]
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		return a.Estate < b.Estate
	})
	for i := range ranking.ByStability {
		ranking.ByStability[i].Rank = i + 1
	}

	ranking.BestOverall = ranking.ByAverage[0].Estate
	if len(ranking.ByStability) > 0 {
		ranking.BestOverall = ranking.ByStability[0].Estate
	}
	ranking.WorstOverall = ranking.ByAverage[len(ranking.ByAverage)-1].Estate
	ranking.Insights = []string{
		ranking.BestOverall + " shows the most consistent leadership across average OER and volatility.",
		ranking.WorstOverall + " is the biggest opportunity for improvement, with lower average OER and/or higher variability.",
	}
	return ranking
}
