package geo

import "math"

// earthRadiusKm is the mean radius of the earth used for great-circle math.
const earthRadiusKm = 6371

// Distance returns the great-circle distance in kilometers between two
// points given in decimal degrees, using the haversine formula. Inputs
// are not validated; out-of-range coordinates produce garbage distances.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1 = radians(lat1)
	lon1 = radians(lon1)
	lat2 = radians(lat2)
	lon2 = radians(lon2)

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
