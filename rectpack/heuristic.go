package rectpack

import (
	"fmt"
	"strings"
)

// Heuristic 是算法类型、空闲区选择方式和切分方式组成的位掩码
type Heuristic uint16

const (
	MaxRects   Heuristic = 0x0
	Skyline    Heuristic = 0x1
	Guillotine Heuristic = 0x2

	BestShortSideFit  Heuristic = 0x00
	BestLongSideFit   Heuristic = 0x10
	BestAreaFit       Heuristic = 0x20
	BottomLeft        Heuristic = 0x30
	ContactPoint      Heuristic = 0x40
	WorstAreaFit      Heuristic = 0x50
	WorstShortSideFit Heuristic = 0x60
	WorstLongSideFit  Heuristic = 0x70
	MinWaste          Heuristic = 0x80

	SplitShorterLeftoverAxis Heuristic = 0x0000
	SplitLongerLeftoverAxis  Heuristic = 0x0100
	SplitMinimizeArea        Heuristic = 0x0200
	SplitMaximizeArea        Heuristic = 0x0300
	SplitShorterAxis         Heuristic = 0x0400
	SplitLongerAxis          Heuristic = 0x0500

	typeMask  Heuristic = 0x000F
	fitMask   Heuristic = 0x00F0
	splitMask Heuristic = 0x0F00

	/**********************************************************************************************
	* Present combinations of valid heuristics
	**********************************************************************************************/
	MaxRectsBSSF   = MaxRects | BestShortSideFit
	MaxRectsBL     = MaxRects | BottomLeft
	MaxRectsCP     = MaxRects | ContactPoint
	MaxRectsBLSF   = MaxRects | BestLongSideFit
	MaxRectsBAF    = MaxRects | BestAreaFit
	SkylineBLF     = Skyline | BottomLeft
	SkylineMW      = Skyline | MinWaste
	GuillotineBAF  = Guillotine | BestAreaFit | SplitMinimizeArea
	GuillotineBSSF = Guillotine | BestShortSideFit | SplitMinimizeArea
	GuillotineBLSF = Guillotine | BestLongSideFit | SplitMinimizeArea
	GuillotineWAF  = Guillotine | WorstAreaFit | SplitMinimizeArea
	GuillotineWSSF = Guillotine | WorstShortSideFit | SplitMinimizeArea
	GuillotineWLSF = Guillotine | WorstLongSideFit | SplitMinimizeArea
)

// Algorithm returns the algorithm portion of the bitmask.
func (e Heuristic) Algorithm() Heuristic {
	return e & typeMask
}

// Bin returns the bin selection method portion of the bitmask.
func (e Heuristic) Bin() Heuristic {
	return e & fitMask
}

// Split returns the split method portion of the bitmask.
func (e Heuristic) Split() Heuristic {
	return e & splitMask
}

var variants = map[Heuristic]map[string]Heuristic{
	MaxRects: {
		"bestshortsidefit": MaxRectsBSSF,
		"bottomleft":       MaxRectsBL,
		"contactpoint":     MaxRectsCP,
		"bestlongsidefit":  MaxRectsBLSF,
		"bestareafit":      MaxRectsBAF,
	},
	Guillotine: {
		"bestareafit":       GuillotineBAF,
		"bestshortsidefit":  GuillotineBSSF,
		"bestlongsidefit":   GuillotineBLSF,
		"worstareafit":      GuillotineWAF,
		"worstshortsidefit": GuillotineWSSF,
		"worstlongsidefit":  GuillotineWLSF,
	},
	Skyline: {
		"bottomleft": SkylineBLF,
		"minwaste":   SkylineMW,
	},
}

var algorithms = map[string]Heuristic{
	"maxrects":   MaxRects,
	"guillotine": Guillotine,
	"skyline":    Skyline,
}

// normalizeName 使 "BestAreaFit"、"best-area-fit"、"best_area_fit" 等写法等价
func normalizeName(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
}

// ResolveAlgorithm 根据算法名称和变体名称得到对应的 Heuristic。
// 变体为空时使用该算法的默认变体。
func ResolveAlgorithm(algo, variant string) (Heuristic, error) {
	a, ok := algorithms[normalizeName(algo)]
	if !ok {
		return 0, fmt.Errorf("unknown packing algorithm %q", algo)
	}
	if variant == "" {
		switch a {
		case Skyline:
			return SkylineBLF, nil
		case Guillotine:
			return GuillotineBAF, nil
		default:
			return MaxRectsBAF, nil
		}
	}
	h, ok := variants[a][normalizeName(variant)]
	if !ok {
		return 0, fmt.Errorf("variant %q is invalid for algorithm %q", variant, algo)
	}
	return h, nil
}
