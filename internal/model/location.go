package model

type RoadCondition string

const (
	RoadExcellent RoadCondition = "EXCELLENT"
	RoadGood      RoadCondition = "GOOD"
	RoadFair      RoadCondition = "FAIR"
	RoadPoor      RoadCondition = "POOR"
	RoadCritical  RoadCondition = "CRITICAL"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

type WeatherCondition string

const (
	WeatherCerah       WeatherCondition = "CERAH"
	WeatherBerawan     WeatherCondition = "BERAWAN"
	WeatherHujanRingan WeatherCondition = "HUJAN_RINGAN"
	WeatherHujanSedang WeatherCondition = "HUJAN_SEDANG"
	WeatherHujanLebat  WeatherCondition = "HUJAN_LEBAT"
	WeatherKabut       WeatherCondition = "KABUT"
	WeatherBadai       WeatherCondition = "BADAI"
)

type MiningSite struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

type LoadingPoint struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	MiningSiteID string `json:"miningSiteId,omitempty"`
	IsActive     bool   `json:"isActive"`
}

type DumpingPoint struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	MiningSiteID string `json:"miningSiteId,omitempty"`
	IsActive     bool   `json:"isActive"`
}

type RoadSegment struct {
	ID            string        `json:"id"`
	Code          string        `json:"code"`
	Name          string        `json:"name"`
	MiningSiteID  string        `json:"miningSiteId,omitempty"`
	Distance      float64       `json:"distance"`
	RoadCondition RoadCondition `json:"roadCondition,omitempty"`
	IsActive      bool          `json:"isActive"`
}

// Catalog holds the master lists a dispatcher picks from during one draft session.
type Catalog struct {
	Trucks        []Truck        `json:"trucks"`
	Excavators    []Excavator    `json:"excavators"`
	Operators     []Operator     `json:"operators"`
	MiningSites   []MiningSite   `json:"miningSites"`
	LoadingPoints []LoadingPoint `json:"loadingPoints"`
	DumpingPoints []DumpingPoint `json:"dumpingPoints"`
	RoadSegments  []RoadSegment  `json:"roadSegments"`
}

func (c Catalog) Truck(id string) (Truck, bool) {
	for _, t := range c.Trucks {
		if t.ID == id {
			return t, true
		}
	}
	return Truck{}, false
}

func (c Catalog) Excavator(id string) (Excavator, bool) {
	for _, e := range c.Excavators {
		if e.ID == id {
			return e, true
		}
	}
	return Excavator{}, false
}

func (c Catalog) Operator(id string) (Operator, bool) {
	for _, o := range c.Operators {
		if o.ID == id {
			return o, true
		}
	}
	return Operator{}, false
}

func (c Catalog) LoadingPoint(id string) (LoadingPoint, bool) {
	for _, p := range c.LoadingPoints {
		if p.ID == id {
			return p, true
		}
	}
	return LoadingPoint{}, false
}

func (c Catalog) DumpingPoint(id string) (DumpingPoint, bool) {
	for _, p := range c.DumpingPoints {
		if p.ID == id {
			return p, true
		}
	}
	return DumpingPoint{}, false
}

func (c Catalog) RoadSegment(id string) (RoadSegment, bool) {
	for _, r := range c.RoadSegments {
		if r.ID == id {
			return r, true
		}
	}
	return RoadSegment{}, false
}

func (c Catalog) MiningSite(id string) (MiningSite, bool) {
	for _, s := range c.MiningSites {
		if s.ID == id {
			return s, true
		}
	}
	return MiningSite{}, false
}
