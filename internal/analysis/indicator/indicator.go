package indicator

import (
	"fmt"
	"math"
	"sort"

	talib "github.com/markcheno/go-talib"

	"arena/internal/market"
)

// RSIReport summarizes the relative strength index for one symbol/timeframe.
type RSIReport struct {
	Symbol    string  `json:"symbol"`
	Timeframe string  `json:"timeframe"`
	Period    int     `json:"period"`
	Latest    float64 `json:"rsi"`
	Signal    string  `json:"signal"` // oversold | neutral | overbought
}

// RSI computes a talib RSI over candle closes.
func RSI(symbol, timeframe string, candles []market.Candle, period int) (RSIReport, error) {
	if period <= 0 {
		period = 14
	}
	closes := market.Closes(candles)
	if len(closes) < period+1 {
		return RSIReport{}, fmt.Errorf("need at least %d candles for RSI(%d), got %d", period+1, period, len(closes))
	}
	series := talib.Rsi(closes, period)
	latest := lastValid(series)
	signal := "neutral"
	switch {
	case latest <= 30:
		signal = "oversold"
	case latest >= 70:
		signal = "overbought"
	}
	return RSIReport{Symbol: symbol, Timeframe: timeframe, Period: period, Latest: round2(latest), Signal: signal}, nil
}

// MACDReport summarizes MACD line, signal line and histogram.
type MACDReport struct {
	Symbol    string  `json:"symbol"`
	Timeframe string  `json:"timeframe"`
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
	Trend     string  `json:"trend"` // bullish | bearish
	Crossover string  `json:"crossover,omitempty"`
}

// MACD computes the 12/26/9 MACD.
func MACD(symbol, timeframe string, candles []market.Candle) (MACDReport, error) {
	closes := market.Closes(candles)
	if len(closes) < 35 {
		return MACDReport{}, fmt.Errorf("need at least 35 candles for MACD, got %d", len(closes))
	}
	macd, signal, hist := talib.Macd(closes, 12, 26, 9)
	rep := MACDReport{
		Symbol:    symbol,
		Timeframe: timeframe,
		MACD:      round4(lastValid(macd)),
		Signal:    round4(lastValid(signal)),
		Histogram: round4(lastValid(hist)),
	}
	if rep.Histogram >= 0 {
		rep.Trend = "bullish"
	} else {
		rep.Trend = "bearish"
	}
	if len(hist) >= 2 {
		prev := hist[len(hist)-2]
		cur := hist[len(hist)-1]
		if prev < 0 && cur >= 0 {
			rep.Crossover = "bullish_crossover"
		} else if prev > 0 && cur <= 0 {
			rep.Crossover = "bearish_crossover"
		}
	}
	return rep, nil
}

// MAEntry is one moving-average pair for a period.
type MAEntry struct {
	Period     int     `json:"period"`
	SMA        float64 `json:"sma"`
	EMA        float64 `json:"ema"`
	PriceAbove bool    `json:"price_above"`
}

// MAReport summarizes simple and exponential moving averages.
type MAReport struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Price     float64   `json:"price"`
	Averages  []MAEntry `json:"averages"`
}

// MovingAverages computes SMA and EMA for each requested period.
func MovingAverages(symbol, timeframe string, candles []market.Candle, periods []int) (MAReport, error) {
	if len(periods) == 0 {
		periods = []int{20, 50, 200}
	}
	closes := market.Closes(candles)
	if len(closes) == 0 {
		return MAReport{}, fmt.Errorf("no candles")
	}
	price := closes[len(closes)-1]
	rep := MAReport{Symbol: symbol, Timeframe: timeframe, Price: round2(price)}
	for _, p := range periods {
		if p <= 0 || p > len(closes) {
			continue
		}
		sma := lastValid(talib.Sma(closes, p))
		ema := lastValid(talib.Ema(closes, p))
		rep.Averages = append(rep.Averages, MAEntry{
			Period:     p,
			SMA:        round2(sma),
			EMA:        round2(ema),
			PriceAbove: price > sma,
		})
	}
	if len(rep.Averages) == 0 {
		return MAReport{}, fmt.Errorf("not enough candles (%d) for any requested period %v", len(closes), periods)
	}
	return rep, nil
}

// BollingerReport summarizes Bollinger bands and where price sits in them.
type BollingerReport struct {
	Symbol    string  `json:"symbol"`
	Timeframe string  `json:"timeframe"`
	Upper     float64 `json:"upper"`
	Middle    float64 `json:"middle"`
	Lower     float64 `json:"lower"`
	Price     float64 `json:"price"`
	Position  string  `json:"position"` // below_lower | lower_half | upper_half | above_upper
	Bandwidth float64 `json:"bandwidth_pct"`
}

// Bollinger computes period/stdDev Bollinger bands over closes.
func Bollinger(symbol, timeframe string, candles []market.Candle, period int, stdDev float64) (BollingerReport, error) {
	if period <= 0 {
		period = 20
	}
	if stdDev <= 0 {
		stdDev = 2
	}
	closes := market.Closes(candles)
	if len(closes) < period {
		return BollingerReport{}, fmt.Errorf("need at least %d candles for Bollinger(%d), got %d", period, period, len(closes))
	}
	upper, middle, lower := talib.BBands(closes, period, stdDev, stdDev, talib.SMA)
	price := closes[len(closes)-1]
	u, m, l := lastValid(upper), lastValid(middle), lastValid(lower)
	position := "lower_half"
	switch {
	case price < l:
		position = "below_lower"
	case price > u:
		position = "above_upper"
	case price >= m:
		position = "upper_half"
	}
	bandwidth := 0.0
	if m != 0 {
		bandwidth = (u - l) / m * 100
	}
	return BollingerReport{
		Symbol:    symbol,
		Timeframe: timeframe,
		Upper:     round2(u),
		Middle:    round2(m),
		Lower:     round2(l),
		Price:     round2(price),
		Position:  position,
		Bandwidth: round2(bandwidth),
	}, nil
}

// MomentumReport summarizes recent price and volume drift.
type MomentumReport struct {
	Symbol      string  `json:"symbol"`
	Timeframe   string  `json:"timeframe"`
	Periods     int     `json:"periods"`
	ChangePct   float64 `json:"change_pct"`
	Direction   string  `json:"direction"` // up | down | flat
	VolumeTrend string  `json:"volume_trend"`
}

// Momentum measures percent change over the trailing window.
func Momentum(symbol, timeframe string, candles []market.Candle, periods int) (MomentumReport, error) {
	if periods <= 0 {
		periods = 20
	}
	if len(candles) < periods+1 {
		return MomentumReport{}, fmt.Errorf("need at least %d candles for momentum, got %d", periods+1, len(candles))
	}
	window := candles[len(candles)-periods-1:]
	first := window[0].Close
	last := window[len(window)-1].Close
	changePct := 0.0
	if first != 0 {
		changePct = (last - first) / first * 100
	}
	direction := "flat"
	if changePct > 0.5 {
		direction = "up"
	} else if changePct < -0.5 {
		direction = "down"
	}
	half := len(window) / 2
	older, recent := 0.0, 0.0
	for i, c := range window {
		if i < half {
			older += c.Volume
		} else {
			recent += c.Volume
		}
	}
	volumeTrend := "steady"
	if older > 0 {
		ratio := recent / older
		if ratio > 1.2 {
			volumeTrend = "rising"
		} else if ratio < 0.8 {
			volumeTrend = "falling"
		}
	}
	return MomentumReport{
		Symbol:      symbol,
		Timeframe:   timeframe,
		Periods:     periods,
		ChangePct:   round2(changePct),
		Direction:   direction,
		VolumeTrend: volumeTrend,
	}, nil
}

// LevelsReport holds support/resistance levels from recent swing extremes.
type LevelsReport struct {
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	Price      float64   `json:"price"`
	Support    []float64 `json:"support"`
	Resistance []float64 `json:"resistance"`
}

// SupportResistance clusters the highest highs and lowest lows of the lookback
// window into up to three levels on each side of price.
func SupportResistance(symbol, timeframe string, candles []market.Candle, lookback int) (LevelsReport, error) {
	if lookback <= 0 {
		lookback = 50
	}
	if len(candles) == 0 {
		return LevelsReport{}, fmt.Errorf("no candles")
	}
	if lookback > len(candles) {
		lookback = len(candles)
	}
	window := candles[len(candles)-lookback:]
	price := window[len(window)-1].Close

	var highs, lows []float64
	for _, c := range window {
		highs = append(highs, c.High)
		lows = append(lows, c.Low)
	}
	sort.Float64s(highs)
	sort.Float64s(lows)

	rep := LevelsReport{Symbol: symbol, Timeframe: timeframe, Price: round2(price)}
	for i := len(highs) - 1; i >= 0 && len(rep.Resistance) < 3; i-- {
		if highs[i] > price && !nearAny(rep.Resistance, highs[i]) {
			rep.Resistance = append(rep.Resistance, round2(highs[i]))
		}
	}
	for i := 0; i < len(lows) && len(rep.Support) < 3; i++ {
		if lows[i] < price && !nearAny(rep.Support, lows[i]) {
			rep.Support = append(rep.Support, round2(lows[i]))
		}
	}
	return rep, nil
}

// nearAny suppresses levels within 0.5% of an already kept one.
func nearAny(levels []float64, v float64) bool {
	for _, l := range levels {
		if l == 0 {
			continue
		}
		if math.Abs(v-l)/l < 0.005 {
			return true
		}
	}
	return false
}

func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) && series[i] != 0 {
			return series[i]
		}
	}
	if len(series) > 0 {
		return series[len(series)-1]
	}
	return 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
