package calculator

import (
	"fmt"
	"sort"
	"strings"
)

// Severity 问题严重程度
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

func (s Severity) rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	default:
		return 2
	}
}

// maxIssues 综合结论最多输出的问题数
const maxIssues = 5

// Issue 综合诊断出的单个问题
type Issue struct {
	Severity        Severity `json:"severity"`
	Title           string   `json:"title"`
	Problem         string   `json:"problem"`
	ResolutionTitle string   `json:"resolutionTitle"`
	Resolution      []string `json:"resolution"`
}

// IssueReport 综合结论
type IssueReport struct {
	Issues     []Issue    `json:"issues"`
	NoConcerns bool       `json:"noConcerns"`
	Summary    *Narrative `json:"summary,omitempty"`
}

// SynthesizeIssues 按固定规则表由相关性与稳定性结果生成问题清单
//
// 规则按检测顺序追加，再按严重程度稳定排序，最多保留 5 条。
func SynthesizeIssues(corr *CorrelationResult, stab *StabilityResult) IssueReport {
	var rInti, rPlasma, r3P float64
	if corr != nil {
		rInti, rPlasma, r3P = corr.Inti.R, corr.Plasma.R, corr.ThirdParty.R
	}
	var cvInti, cvPlasma, cv3P, avgCV float64
	if stab != nil {
		cvInti, cvPlasma, cv3P, avgCV = stab.Inti.CV, stab.Plasma.CV, stab.ThirdParty.CV, stab.AvgCV
	}

	var issues []Issue
	if rInti < 0 {
		issues = append(issues, Issue{
			Severity: SeverityHigh,
			Title:    "Negative Internal Fruit Correlation",
			Problem: fmt.Sprintf("Internal fruit (Inti) shows a negative correlation with OER (%.2f). "+
				"This means increasing Inti proportion is associated with lower OER, which is abnormal.", rInti),
			ResolutionTitle: "Immediate Actions",
			Resolution: []string{
				"Inspect ripeness standards at internal estates (target 80-90% ripe bunches)",
				"Check for fruit damage during harvest and transportation",
				"Review harvesting timing - ensure fruits are processed within 24 hours",
				"Assess bunch quality and loose fruit percentage",
				"Conduct estate-level quality audits to identify root causes",
			},
		})
	}
	if r3P < -0.3 {
		issues = append(issues, Issue{
			Severity: SeverityHigh,
			Title:    "Third-Party Fruit Quality Concerns",
			Problem: fmt.Sprintf("Third-party (3P) fruit shows strong negative correlation (%.2f). "+
				"Higher 3P proportion significantly reduces OER.", r3P),
			ResolutionTitle: "Recommended Strategies",
			Resolution: []string{
				"Implement stricter quality acceptance criteria for 3P suppliers",
				"Conduct supplier quality audits and provide training",
				"Introduce quality-based pricing incentives",
				"Consider reducing dependency on low-quality 3P sources",
				"Increase Inti/Plasma proportion where possible",
			},
		})
	}

	var unstable []string
	if cvInti > 30 {
		unstable = append(unstable, fmt.Sprintf("Inti (%.1f%% CV)", cvInti))
	}
	if cvPlasma > 30 {
		unstable = append(unstable, fmt.Sprintf("Plasma (%.1f%% CV)", cvPlasma))
	}
	if cv3P > 30 {
		unstable = append(unstable, fmt.Sprintf("3P (%.1f%% CV)", cv3P))
	}
	if len(unstable) > 0 {
		issues = append(issues, Issue{
			Severity: SeverityMedium,
			Title:    "High Supply Variability Detected",
			Problem: fmt.Sprintf("The following sources show unstable supply patterns: %s. "+
				"High CV (>30%%) indicates unpredictable sourcing.", strings.Join(unstable, ", ")),
			ResolutionTitle: "Stabilization Measures",
			Resolution: []string{
				"Establish long-term supply contracts with fixed proportions",
				"Implement buffer inventory strategies",
				"Review estate harvesting schedules and crop planning",
				"For 3P sources: negotiate more consistent delivery schedules",
				"Monitor monthly to detect early signs of instability",
			},
		})
	}
	if avgCV > 25 {
		issues = append(issues, Issue{
			Severity: SeverityMedium,
			Title:    "Inconsistent Fruit Mix Patterns",
			Problem: fmt.Sprintf("Average CV across all sources is %.1f%%, "+
				"indicating significant month-to-month fluctuations in fruit mix composition.", avgCV),
			ResolutionTitle: "Strategic Planning",
			Resolution: []string{
				"Develop annual sourcing plan with target proportions",
				"Coordinate with estate managers for predictable harvest schedules",
				"Implement demand forecasting to anticipate supply needs",
				"Create contingency plans for supply disruptions",
				"Review and adjust sourcing strategy quarterly",
			},
		})
	}
	if rInti >= 0 && rInti < 0.3 && rPlasma >= 0 && rPlasma < 0.3 {
		issues = append(issues, Issue{
			Severity: SeverityLow,
			Title:    "Weak Correlation - Optimization Opportunity",
			Problem: fmt.Sprintf("Both Inti (%.2f) and Plasma (%.2f) show weak positive correlations. "+
				"While not negative, there's room for improvement.", rInti, rPlasma),
			ResolutionTitle: "Optimization Steps",
			Resolution: []string{
				"Analyze quality differences between high-OER and low-OER periods",
				"Standardize fruit acceptance criteria across all estates",
				"Invest in agronomic practices to improve fruit quality",
				"Conduct training on optimal harvesting practices",
				"Track fruit quality metrics alongside OER for deeper insights",
			},
		})
	}

	if len(issues) == 0 {
		return IssueReport{
			Issues:     []Issue{},
			NoConcerns: true,
			Summary: &Narrative{
				Level: LevelPositive,
				Title: "Excellent Performance!",
				Body: "No major concerns detected. Your fruit sourcing shows positive correlations with OER and stable supply patterns. " +
					"Continue monitoring to maintain this performance.",
			},
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Severity.rank() < issues[j].Severity.rank()
	})
	if len(issues) > maxIssues {
		issues = issues[:maxIssues]
	}
	return IssueReport{Issues: issues}
}
