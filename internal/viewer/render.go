package viewer

import (
	"math"
	"strings"

	"github.com/Faultbox/midgard-city/internal/game/traffic"
	"github.com/Faultbox/midgard-city/pkg/formats"
)

// Viewport is the visible window of the grid, in cells.
type Viewport struct {
	Row, Col      int
	Width, Height int
}

// glyph returns the character drawn for a map cell.
func glyph(s formats.Symbol) (rune, bool) {
	switch {
	case s == formats.SymbolBuilding:
		return '█', true
	case s == formats.SymbolDown:
		return '╷', true
	case s == formats.SymbolUp:
		return '╵', true
	case s == formats.SymbolLeft:
		return '╴', true
	case s == formats.SymbolRight:
		return '╶', true
	case s.IsTrafficLight():
		return '●', true
	case s == formats.SymbolDestination:
		return 'D', true
	case s == formats.SymbolTree:
		return '♣', true
	case s == formats.SymbolBench:
		return '▭', true
	case s == formats.SymbolObject:
		return '▪', true
	case s == formats.SymbolGround:
		return '░', true
	default:
		return ' ', false
	}
}

// arrow returns a heading arrow for yaw. Yaw 0 faces -X.
func arrow(yaw float32) rune {
	a := math.Mod(float64(yaw), 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	switch int(math.Round(a/(math.Pi/2))) % 4 {
	case 1:
		return '↓'
	case 2:
		return '→'
	case 3:
		return '↑'
	default:
		return '←'
	}
}

func styleFor(s formats.Symbol) func(...string) string {
	switch {
	case s == formats.SymbolBuilding:
		return buildingStyle.Render
	case s == formats.SymbolTrafficLightGreen:
		return greenStyle.Render
	case s == formats.SymbolTrafficLight:
		return lightStyle.Render
	case s == formats.SymbolDestination:
		return destStyle.Render
	case s.IsDirection():
		return laneStyle.Render
	case s == formats.SymbolTree:
		return greenStyle.Render
	default:
		return dimStyle.Render
	}
}

// Plain draws the map and agents without styling, one line per row.
func Plain(m *formats.CityMap, agents []traffic.Transform, vp Viewport) string {
	return draw(m, agents, vp, false)
}

// Styled draws the map and agents with terminal colors.
func Styled(m *formats.CityMap, agents []traffic.Transform, vp Viewport) string {
	return draw(m, agents, vp, true)
}

func draw(m *formats.CityMap, agents []traffic.Transform, vp Viewport, styled bool) string {
	if m == nil || vp.Width <= 0 || vp.Height <= 0 {
		return ""
	}

	// World X is the column and Z the row.
	cars := make(map[[2]int]rune, len(agents))
	for _, a := range agents {
		cell := [2]int{int(math.Round(float64(a.Position.Z))), int(math.Round(float64(a.Position.X)))}
		cars[cell] = arrow(a.Yaw)
	}

	var sb strings.Builder
	for r := vp.Row; r < vp.Row+vp.Height && r < m.Height(); r++ {
		if r < 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		for c := vp.Col; c < vp.Col+vp.Width && c < m.Width(); c++ {
			if c < 0 {
				continue
			}
			if ch, ok := cars[[2]int{r, c}]; ok {
				if styled {
					sb.WriteString(agentStyle.Render(string(ch)))
				} else {
					sb.WriteRune(ch)
				}
				continue
			}

			sym := m.At(r, c)
			ch, _ := glyph(sym)
			if styled {
				sb.WriteString(styleFor(sym)(string(ch)))
			} else {
				sb.WriteRune(ch)
			}
		}
	}
	return sb.String()
}
