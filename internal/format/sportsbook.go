package format

// Sportsbook is the upstream code of a sportsbook
type Sportsbook string

const (
	DraftKings Sportsbook = "DraftKings"
	FanDuel    Sportsbook = "FanDuel"
	BetMGM     Sportsbook = "BetMGM"
	Caesars    Sportsbook = "Caesars"
	BetRivers  Sportsbook = "BetRivers"
	Bovada     Sportsbook = "Bovada"
	MyBookie   Sportsbook = "MyBookie.ag"
	BetOnline  Sportsbook = "BetOnline.ag"
	LowVig     Sportsbook = "LowVig.ag"
	BetUS      Sportsbook = "BetUS"
)

type sportsbookInfo struct {
	name     string
	cssClass string
}

var sportsbooks = map[Sportsbook]sportsbookInfo{
	DraftKings: {"DraftKings", "draftkings"},
	FanDuel:    {"FanDuel", "fanduel"},
	BetMGM:     {"BetMGM", "betmgm"},
	Caesars:    {"Caesars", "caesars"},
	BetRivers:  {"BetRivers", "betrivers"},
	Bovada:     {"Bovada", "bovada"},
	MyBookie:   {"MyBookie", "mybookie"},
	BetOnline:  {"BetOnline", "betonline"},
	LowVig:     {"LowVig", "lowvig"},
	BetUS:      {"BetUS", "betus"},
}

// DefaultSportsbookClass is used for books without a dedicated style
const DefaultSportsbookClass = "default"

// Name returns the display name; unknown codes are returned unchanged
func (s Sportsbook) Name() string {
	if info, ok := sportsbooks[s]; ok {
		return info.name
	}
	return string(s)
}

// Class returns the CSS class of the sportsbook badge
func (s Sportsbook) Class() string {
	if info, ok := sportsbooks[s]; ok {
		return info.cssClass
	}
	return DefaultSportsbookClass
}
