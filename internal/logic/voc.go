package logic

import "math"

// VOC index algorithm constants (Sensirion gas index algorithm, VOC variant).
const (
	vocSamplingInterval = 1.0
	vocInitialBlackout  = 45.0
	vocIndexGain        = 230.0
	vocSrawStdInitial   = 50.0
	vocSrawStdBonus     = 220.0

	vocTauMeanVarianceHours     = 12.0
	vocTauInitialMean           = 20.0
	vocInitDurationMean         = 3600.0 * 0.75
	vocInitTransitionMean       = 0.01
	vocTauInitialVariance       = 2500.0
	vocInitDurationVariance     = 3600.0 * 1.45
	vocInitTransitionVariance   = 0.01
	vocGatingThreshold          = 340.0
	vocGatingThresholdInitial   = 510.0
	vocGatingThresholdTransit   = 0.09
	vocGatingMaxDurationMinutes = 60.0 * 3.0
	vocGatingMaxRatio           = 0.3

	vocSigmoidL            = 500.0
	vocSigmoidK            = -0.0065
	vocSigmoidX0           = 213.0
	vocIndexOffsetDefault  = 100.0
	vocLowpassTauFast      = 20.0
	vocLowpassTauSlow      = 500.0
	vocLowpassAlpha        = -0.2
	vocGammaScaling        = 64.0
	vocUptimeLimit         = 32767.0 - vocSamplingInterval
	vocSrawMin             = 20001.0
	vocSrawMax             = 52767.0
	vocSrawOffset          = 20000.0
	vocSrawValidUpperBound = 65000.0
)

// VocFilterState is the accumulator of the VOC index algorithm.
//
// The index is a function of the whole raw history: Process must be called
// for every raw sample, in order, at a constant interval, from a single
// state created once by NewVocFilter. Re-initialising mid-stream or skipping
// samples corrupts the index for hours.
type VocFilterState struct {
	uptime   float64
	sraw     float64
	vocIndex float64

	mve     meanVarianceEstimator
	mox     moxModel
	scaled  sigmoidScaled
	lowpass adaptiveLowpass
}

// NewVocFilter returns a freshly initialised filter state.
func NewVocFilter() *VocFilterState {
	s := &VocFilterState{}
	s.mve.setParameters(vocSrawStdInitial, vocTauMeanVarianceHours, vocGatingMaxDurationMinutes)
	s.mox.setParameters(s.mve.std(), s.mve.mean())
	s.scaled.offset = vocIndexOffsetDefault
	s.lowpass.setParameters()
	return s
}

// Process feeds one raw sample and returns the current VOC index.
// During the initial blackout the returned index is 0.
func (s *VocFilterState) Process(raw float64) int32 {
	if s.uptime <= vocInitialBlackout {
		s.uptime += vocSamplingInterval
	} else {
		if raw > 0 && raw < vocSrawValidUpperBound {
			s.sraw = math.Min(math.Max(raw, vocSrawMin), vocSrawMax) - vocSrawOffset
		}
		s.vocIndex = s.mox.process(s.sraw)
		s.vocIndex = s.scaled.process(s.vocIndex)
		s.vocIndex = s.lowpass.process(s.vocIndex)
		if s.vocIndex < 0.5 {
			s.vocIndex = 0.5
		}
		if s.sraw > 0 {
			s.mve.process(s.sraw, s.vocIndex)
			s.mox.setParameters(s.mve.std(), s.mve.mean())
		}
	}
	return int32(s.vocIndex + 0.5)
}

type sigmoid struct {
	k, x0, l float64
}

func (g *sigmoid) set(l, x0, k float64) {
	g.l = l
	g.x0 = x0
	g.k = k
}

func (g *sigmoid) process(sample float64) float64 {
	x := g.k * (sample - g.x0)
	if x < -50 {
		return g.l
	}
	if x > 50 {
		return 0
	}
	return g.l / (1 + math.Exp(x))
}

// meanVarianceEstimator tracks the baseline mean and spread of the raw signal.
type meanVarianceEstimator struct {
	gatingMaxDurationMinutes float64

	initialized   bool
	meanValue     float64
	srawOffset    float64
	stdValue      float64
	gamma         float64
	gammaInitMean float64
	gammaInitVar  float64
	gammaMean     float64
	gammaVariance float64
	uptimeGamma   float64
	uptimeGating  float64
	gatingMinutes float64

	sig sigmoid
}

func (m *meanVarianceEstimator) setParameters(stdInitial, tauHours, gatingMaxMinutes float64) {
	m.gatingMaxDurationMinutes = gatingMaxMinutes
	m.initialized = false
	m.meanValue = 0
	m.srawOffset = 0
	m.stdValue = stdInitial
	m.gamma = (vocGammaScaling * (vocSamplingInterval / 3600.0)) / (tauHours + (vocSamplingInterval / 3600.0))
	m.gammaInitMean = (vocGammaScaling * vocSamplingInterval) / (vocTauInitialMean + vocSamplingInterval)
	m.gammaInitVar = (vocGammaScaling * vocSamplingInterval) / (vocTauInitialVariance + vocSamplingInterval)
	m.gammaMean = 0
	m.gammaVariance = 0
	m.uptimeGamma = 0
	m.uptimeGating = 0
	m.gatingMinutes = 0
}

func (m *meanVarianceEstimator) std() float64 {
	return m.stdValue
}

func (m *meanVarianceEstimator) mean() float64 {
	return m.meanValue + m.srawOffset
}

func (m *meanVarianceEstimator) calculateGamma(vocIndexFromPrior float64) {
	if m.uptimeGamma < vocUptimeLimit {
		m.uptimeGamma += vocSamplingInterval
	}
	if m.uptimeGating < vocUptimeLimit {
		m.uptimeGating += vocSamplingInterval
	}

	m.sig.set(1, vocInitDurationMean, vocInitTransitionMean)
	sigmoidGammaMean := m.sig.process(m.uptimeGamma)
	gammaMean := m.gamma + (m.gammaInitMean-m.gamma)*sigmoidGammaMean
	gatingThresholdMean := vocGatingThreshold +
		(vocGatingThresholdInitial-vocGatingThreshold)*m.sig.process(m.uptimeGating)
	m.sig.set(1, gatingThresholdMean, vocGatingThresholdTransit)
	sigmoidGatingMean := m.sig.process(vocIndexFromPrior)
	m.gammaMean = sigmoidGatingMean * gammaMean

	m.sig.set(1, vocInitDurationVariance, vocInitTransitionVariance)
	sigmoidGammaVariance := m.sig.process(m.uptimeGamma)
	gammaVariance := m.gamma + (m.gammaInitVar-m.gamma)*(sigmoidGammaVariance-sigmoidGammaMean)
	gatingThresholdVariance := vocGatingThreshold +
		(vocGatingThresholdInitial-vocGatingThreshold)*m.sig.process(m.uptimeGating)
	m.sig.set(1, gatingThresholdVariance, vocGatingThresholdTransit)
	sigmoidGatingVariance := m.sig.process(vocIndexFromPrior)
	m.gammaVariance = sigmoidGatingVariance * gammaVariance

	m.gatingMinutes += (vocSamplingInterval / 60.0) *
		(((1 - sigmoidGatingMean) * (1 + vocGatingMaxRatio)) - vocGatingMaxRatio)
	if m.gatingMinutes < 0 {
		m.gatingMinutes = 0
	}
	if m.gatingMinutes > m.gatingMaxDurationMinutes {
		m.uptimeGating = 0
	}
}

func (m *meanVarianceEstimator) process(sraw, vocIndexFromPrior float64) {
	if !m.initialized {
		m.initialized = true
		m.srawOffset = sraw
		m.meanValue = 0
		return
	}

	if m.meanValue >= 100 || m.meanValue <= -100 {
		m.srawOffset += m.meanValue
		m.meanValue = 0
	}
	sraw -= m.srawOffset
	m.calculateGamma(vocIndexFromPrior)

	delta := (sraw - m.meanValue) / vocGammaScaling
	c := m.stdValue + math.Abs(delta)
	scaling := 1.0
	if c > 1440 {
		scaling = 4
	}
	m.stdValue = math.Sqrt(scaling*(vocGammaScaling-m.gammaVariance)) *
		math.Sqrt((m.stdValue*(m.stdValue/(vocGammaScaling*scaling)))+(((m.gammaVariance*delta)/scaling)*delta))
	m.meanValue += m.gammaMean * delta
}

// moxModel maps the raw signal onto a zero-centred, spread-normalised scale.
type moxModel struct {
	srawStd  float64
	srawMean float64
}

func (m *moxModel) setParameters(std, mean float64) {
	m.srawStd = std
	m.srawMean = mean
}

func (m *moxModel) process(sraw float64) float64 {
	return ((sraw - m.srawMean) / (-(m.srawStd + vocSrawStdBonus))) * vocIndexGain
}

// sigmoidScaled maps the model output onto the 0..500 index range.
type sigmoidScaled struct {
	offset float64
}

func (g *sigmoidScaled) process(sample float64) float64 {
	x := vocSigmoidK * (sample - vocSigmoidX0)
	if x < -50 {
		return vocSigmoidL
	}
	if x > 50 {
		return 0
	}
	if sample >= 0 {
		shift := (vocSigmoidL - 5*g.offset) / 4
		return ((vocSigmoidL + shift) / (1 + math.Exp(x))) - shift
	}
	return (g.offset / vocIndexOffsetDefault) * (vocSigmoidL / (1 + math.Exp(x)))
}

// adaptiveLowpass smooths the index with a time constant that shortens on
// fast changes.
type adaptiveLowpass struct {
	a1, a2      float64
	initialized bool
	x1, x2, x3  float64
}

func (f *adaptiveLowpass) setParameters() {
	f.a1 = vocSamplingInterval / (vocLowpassTauFast + vocSamplingInterval)
	f.a2 = vocSamplingInterval / (vocLowpassTauSlow + vocSamplingInterval)
	f.initialized = false
}

func (f *adaptiveLowpass) process(sample float64) float64 {
	if !f.initialized {
		f.x1 = sample
		f.x2 = sample
		f.x3 = sample
		f.initialized = true
	}
	f.x1 = (1-f.a1)*f.x1 + f.a1*sample
	f.x2 = (1-f.a2)*f.x2 + f.a2*sample
	absDelta := math.Abs(f.x1 - f.x2)
	f1 := math.Exp(vocLowpassAlpha * absDelta)
	tauA := (vocLowpassTauSlow-vocLowpassTauFast)*f1 + vocLowpassTauFast
	a3 := vocSamplingInterval / (vocSamplingInterval + tauA)
	f.x3 = (1-a3)*f.x3 + a3*sample
	return f.x3
}
