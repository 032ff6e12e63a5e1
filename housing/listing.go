package housing

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Listing は1件の物件
type Listing struct {
	District     string
	LandArea     float64
	BuildingArea float64
	Age          float64
	Floor        float64
	TotalFloors  float64
	Rooms        float64
	Halls        float64
	Bathrooms    float64
	Elevator     float64
	Parking      string
	Longitude    float64
	Latitude     float64
	TotalPrice   float64
}

// UnitPrice は 總價 / 建物總面積
func (l Listing) UnitPrice() float64 {
	return l.TotalPrice / l.BuildingArea
}

// FeatureFrame は Listing を FeatureColumns の並びの DataFrame にする
// 学習済みパイプラインで CSV を経由せずに予測するときに使う。
func FeatureFrame(listings []Listing) dataframe.DataFrame {
	n := len(listings)
	strCols := map[string][]string{
		DistrictColumn: make([]string, n),
		ParkingColumn:  make([]string, n),
	}
	numCols := make(map[string][]float64, len(FeatureColumns))
	for _, c := range FeatureColumns {
		if _, ok := strCols[c]; !ok {
			numCols[c] = make([]float64, n)
		}
	}

	for i, l := range listings {
		strCols[DistrictColumn][i] = l.District
		strCols[ParkingColumn][i] = l.Parking
		numCols[LandAreaColumn][i] = l.LandArea
		numCols[BuildingAreaColumn][i] = l.BuildingArea
		numCols[AgeColumn][i] = l.Age
		numCols[FloorColumn][i] = l.Floor
		numCols[TotalFloorsColumn][i] = l.TotalFloors
		numCols[RoomsColumn][i] = l.Rooms
		numCols[HallsColumn][i] = l.Halls
		numCols[BathroomsColumn][i] = l.Bathrooms
		numCols[ElevatorColumn][i] = l.Elevator
		numCols[LongitudeColumn][i] = l.Longitude
		numCols[LatitudeColumn][i] = l.Latitude
		numCols[UnitPriceColumn][i] = l.UnitPrice()
	}

	cols := make([]series.Series, 0, len(FeatureColumns))
	for _, c := range FeatureColumns {
		if v, ok := strCols[c]; ok {
			cols = append(cols, series.New(v, series.String, c))
			continue
		}
		cols = append(cols, series.New(numCols[c], series.Float, c))
	}
	return dataframe.New(cols...)
}
