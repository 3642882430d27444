package transform

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/LilVoxy/remotework_health_etl/ETL/models"
)

// ErrFlatTrend - наклон не определён: меньше двух точек или все годы совпадают
var ErrFlatTrend = errors.New("недостаточно различных лет для расчета тренда")

// TrendPoint - среднее значение индикатора за год
type TrendPoint struct {
	Year  int
	Value float64
}

// TrendResult содержит коэффициенты линейного тренда value = Slope*year + Intercept
type TrendResult struct {
	Slope     float64
	Intercept float64
	R         float64
	R2        float64
	YearFrom  int
	YearTo    int
	Points    int
}

// RoundToThousandth округляет число до тысячных (3 знака после запятой)
func RoundToThousandth(value float64) float64 {
	return math.Round(value*1000) / 1000
}

// LinearTrend рассчитывает линейный тренд методом наименьших квадратов
func LinearTrend(points []TrendPoint) (TrendResult, error) {
	if len(points) < 2 {
		return TrendResult{}, fmt.Errorf("%w: точек %d", ErrFlatTrend, len(points))
	}

	// a = (n*sum(x*y) - sum(x)*sum(y)) / (n*sum(x^2) - (sum(x))^2)
	// b = (sum(y) - a*sum(x)) / n
	n := float64(len(points))
	var sumX, sumY, sumXY, sumX2, sumY2 float64
	yearFrom, yearTo := points[0].Year, points[0].Year
	for _, p := range points {
		x := float64(p.Year)
		sumX += x
		sumY += p.Value
		sumXY += x * p.Value
		sumX2 += x * x
		sumY2 += p.Value * p.Value
		yearFrom = min(yearFrom, p.Year)
		yearTo = max(yearTo, p.Year)
	}

	denominator := n*sumX2 - sumX*sumX
	if math.Abs(denominator) < 1e-10 {
		return TrendResult{}, fmt.Errorf("%w: все точки за %d год", ErrFlatTrend, yearFrom)
	}
	a := (n*sumXY - sumX*sumY) / denominator
	b := (sumY - a*sumX) / n

	// Коэффициент корреляции Пирсона
	var r float64
	spread := math.Sqrt(denominator * (n*sumY2 - sumY*sumY))
	if spread >= 1e-10 {
		r = (n*sumXY - sumX*sumY) / spread
	}

	return TrendResult{
		Slope:     RoundToThousandth(a),
		Intercept: RoundToThousandth(b),
		R:         RoundToThousandth(r),
		R2:        RoundToThousandth(r * r),
		YearFrom:  yearFrom,
		YearTo:    yearTo,
		Points:    len(points),
	}, nil
}

// YearlyTrend строит тренды индикаторов по таблице годовых средних (evolucao_anual).
// Индикаторы, для которых тренд не определён, пропускаются.
func (p *OutputProcessor) YearlyTrend(evolution *models.Table) (*models.Table, error) {
	cols, _, err := resolveColumns(evolution, []string{ColYear, ColIndicator, ColValue})
	if err != nil {
		return nil, err
	}
	yearIdx, codeIdx, valueIdx := cols[0], cols[1], cols[2]

	series := make(map[string][]TrendPoint)
	for _, row := range evolution.Rows {
		code, ok := row[codeIdx].(string)
		if !ok {
			continue
		}
		year, okYear := models.AsFloat(row[yearIdx])
		value, okValue := models.AsFloat(row[valueIdx])
		if !okYear || !okValue {
			continue
		}
		series[code] = append(series[code], TrendPoint{Year: int(year), Value: value})
	}

	codes := make([]string, 0, len(series))
	for code := range series {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	trend := models.NewTable("tendencia_anual",
		models.Column{Name: ColIndicator, Kind: models.KindString},
		models.Column{Name: "year_from", Kind: models.KindInt},
		models.Column{Name: "year_to", Kind: models.KindInt},
		models.Column{Name: "points", Kind: models.KindInt},
		models.Column{Name: "slope", Kind: models.KindFloat},
		models.Column{Name: "intercept", Kind: models.KindFloat},
		models.Column{Name: "r", Kind: models.KindFloat},
		models.Column{Name: "r2", Kind: models.KindFloat},
	)
	for _, code := range codes {
		result, err := LinearTrend(series[code])
		if err != nil {
			p.logger.Debug("%s: тренд не рассчитан: %v", code, err)
			continue
		}
		err = trend.AddRow(
			code, int64(result.YearFrom), int64(result.YearTo), int64(result.Points),
			result.Slope, result.Intercept, result.R, result.R2,
		)
		if err != nil {
			return nil, err
		}
	}
	return trend, nil
}
