package forecaster

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-arimax/arima"
	"github.com/aouyang1/go-arimax/feature"
	"github.com/aouyang1/go-arimax/util"
	"github.com/goccy/go-json"
)

// Model is a serializeable snapshot of the latest fit storing the forecaster options, fit
// diagnostics and coefficients
type Model struct {
	SiteID       string        `json:"site_id,omitempty"`
	TrainEndTime time.Time     `json:"train_end_time"`
	Options      *Options      `json:"options"`
	Summary      arima.Summary `json:"summary"`
	Weights      Weights       `json:"weights"`
}

// Weights stores the regression and ARMA coefficients of the fit
type Weights struct {
	Intercept float64         `json:"intercept"`
	Coef      []FeatureWeight `json:"coefficients"`
	AR        []float64       `json:"ar"`
	MA        []float64       `json:"ma"`
	Sigma2    float64         `json:"sigma2"`
}

// FeatureWeight represents a covariate described with a type and labels along with its
// coefficient
type FeatureWeight struct {
	Labels map[string]string   `json:"labels"`
	Type   feature.FeatureType `json:"type"`
	Value  float64             `json:"value"`
}

func NewFeatureWeight(f feature.Feature, val float64) FeatureWeight {
	return FeatureWeight{
		Labels: f.Decode(),
		Type:   f.Type(),
		Value:  val,
	}
}

// Model returns the snapshot of the latest fit
func (f *Forecaster) Model() (Model, error) {
	if !f.Fitted() {
		return Model{}, ErrUnfitForecaster
	}

	coef, err := f.model.Coefficients()
	if err != nil {
		return Model{}, fmt.Errorf("unable to fetch coefficients, %w", err)
	}
	summary, err := f.model.Summary()
	if err != nil {
		return Model{}, fmt.Errorf("unable to summarize fit, %w", err)
	}

	labels := f.exogLabels.Labels()
	fws := make([]FeatureWeight, 0, len(coef.Exog))
	for i, c := range coef.Exog {
		fws = append(fws, NewFeatureWeight(labels[i], c))
	}

	opt := f.Options()
	m := Model{
		SiteID:  f.siteID,
		Options: &opt,
		Summary: summary,
		Weights: Weights{
			Intercept: coef.Intercept,
			Coef:      fws,
			AR:        coef.AR,
			MA:        coef.MA,
			Sigma2:    coef.Sigma2,
		},
	}
	if f.trainingData != nil {
		m.TrainEndTime = f.trainingData.T[len(f.trainingData.T)-1]
	}
	return m, nil
}

// TablePrint writes a human readable view of the model
func (m Model) TablePrint(w io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(w, "%s%sForecast:\n", prefix, util.IndentExpand(indent, 0)); err != nil {
		return err
	}
	if m.SiteID != "" {
		if _, err := fmt.Fprintf(w, "%s%sSite: %s\n", prefix, util.IndentExpand(indent, 1), m.SiteID); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "%s%sTraining End Time: %s\n", prefix, util.IndentExpand(indent, 1), m.TrainEndTime); err != nil {
		return err
	}

	if m.Options != nil {
		if _, err := fmt.Fprintf(w, "%s%sPreset: %s    Exog: %v    Average: %t\n",
			prefix, util.IndentExpand(indent, 1),
			m.Options.Preset, m.Options.Exog, m.Options.WithAverage); err != nil {
			return err
		}
		if m.Options.ARIMA != nil {
			if _, err := fmt.Fprintf(w, "%s%sOrder: %s\n", prefix, util.IndentExpand(indent, 1), m.Options.ARIMA.Order); err != nil {
				return err
			}
		}
	}

	if _, err := fmt.Fprintf(w, "%s%sFit:\n", prefix, util.IndentExpand(indent, 0)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sObservations: %d    Iterations: %d\n",
		prefix, util.IndentExpand(indent, 1),
		m.Summary.Observations, m.Summary.Iterations); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sLogLik: %.3f    AIC: %.3f    AICc: %.3f    BIC: %.3f\n",
		prefix, util.IndentExpand(indent, 1),
		m.Summary.LogLik, m.Summary.AIC, m.Summary.AICc, m.Summary.BIC); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sMAPE: %.3f    MSE: %.3f    R2: %.3f\n",
		prefix, util.IndentExpand(indent, 1),
		m.Summary.Scores.MAPE, m.Summary.Scores.MSE, m.Summary.Scores.R2); err != nil {
		return err
	}
	if lb := m.Summary.LjungBox; lb != nil {
		if _, err := fmt.Fprintf(w, "%s%sLjung-Box Q(%d): %.3f    p-value: %.3f\n",
			prefix, util.IndentExpand(indent, 1), lb.Lags, lb.Statistic, lb.PValue); err != nil {
			return err
		}
	}

	return m.Weights.tablePrint(w, prefix, indent, 0)
}

func (w Weights) tablePrint(wr io.Writer, prefix, indent string, indentGrowth int) error {
	if _, err := fmt.Fprintf(wr, "%s%sWeights:\n", prefix, util.IndentExpand(indent, indentGrowth)); err != nil {
		return err
	}
	tbl := tabwriter.NewWriter(wr, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sType\tLabels\tValue\t\n", prefix, util.IndentExpand(indent, indentGrowth+1)); err != nil {
		return err
	}

	rows := [][2]string{{"intercept", fmt.Sprintf("%.3f", w.Intercept)}}
	for _, fw := range w.Coef {
		labelOut, err := json.Marshal(fw.Labels)
		if err != nil {
			return err
		}
		val := fmt.Sprintf("%.3f", fw.Value)
		if fw.Value == 0 {
			val = "..."
		}
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%s\t%s\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			fw.Type, string(labelOut), val); err != nil {
			return err
		}
	}
	for i, v := range w.AR {
		rows = append(rows, [2]string{fmt.Sprintf("ar%d", i+1), fmt.Sprintf("%.3f", v)})
	}
	for i, v := range w.MA {
		rows = append(rows, [2]string{fmt.Sprintf("ma%d", i+1), fmt.Sprintf("%.3f", v)})
	}
	rows = append(rows, [2]string{"sigma2", fmt.Sprintf("%.3f", w.Sigma2)})
	for _, r := range rows {
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t\t%s\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1), r[0], r[1]); err != nil {
			return err
		}
	}
	return tbl.Flush()
}
