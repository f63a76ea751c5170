package lunar

import (
	"math"
	"time"
)

const (
	rad        = math.Pi / 180
	obliquity  = rad * 23.4397
	julian1970 = 2440588
	julian2000 = 2451545

	// Apparent horizon offset for the moon's semi-diameter and parallax.
	horizonCorrection = 0.133 * rad
)

type equatorial struct {
	ra  float64
	dec float64
}

// daysSinceJ2000 converts t to fractional days since 2000-01-01T12:00Z.
func daysSinceJ2000(t time.Time) float64 {
	return unixSeconds(t)/86400 - 0.5 + julian1970 - julian2000
}

func rightAscension(l, b float64) float64 {
	return math.Atan2(math.Sin(l)*math.Cos(obliquity)-math.Tan(b)*math.Sin(obliquity), math.Cos(l))
}

func declination(l, b float64) float64 {
	return math.Asin(math.Sin(b)*math.Cos(obliquity) + math.Cos(b)*math.Sin(obliquity)*math.Sin(l))
}

func siderealTime(d, lw float64) float64 {
	return rad*(280.16+360.9856235*d) - lw
}

func altitude(h, phi, dec float64) float64 {
	return math.Asin(math.Sin(phi)*math.Sin(dec) + math.Cos(phi)*math.Cos(dec)*math.Cos(h))
}

// refraction is the atmospheric lift in radians for an apparent altitude h.
func refraction(h float64) float64 {
	if h < 0 {
		return 0
	}
	return 0.0002967 / math.Tan(h+0.00312536/(h+0.08901179))
}

// moonCoords is a low-precision geocentric lunar position for day d.
func moonCoords(d float64) equatorial {
	l := rad * (218.316 + 13.176396*d) // mean longitude
	m := rad * (134.963 + 13.064993*d) // mean anomaly
	f := rad * (93.272 + 13.22935*d)   // argument of latitude

	lon := l + rad*6.289*math.Sin(m)
	lat := rad * 5.128 * math.Sin(f)

	return equatorial{
		ra:  rightAscension(lon, lat),
		dec: declination(lon, lat),
	}
}

// moonAltitude returns the refracted altitude of the moon in radians.
func moonAltitude(t time.Time, lat, lon float64) float64 {
	lw := rad * -lon
	phi := rad * lat
	d := daysSinceJ2000(t)

	c := moonCoords(d)
	h := siderealTime(d, lw) - c.ra
	alt := altitude(h, phi, c.dec)

	return alt + refraction(alt)
}

// RiseSet holds the moonrise and moonset within one UTC day. Either may be
// missing when the moon stays above or below the horizon.
type RiseSet struct {
	Rise    time.Time
	Set     time.Time
	HasRise bool
	HasSet  bool
}

func hoursAfter(t time.Time, hours float64) time.Time {
	return t.Add(time.Duration(hours * float64(time.Hour)))
}

// MoonTimes finds moonrise and moonset for the UTC day containing day. The
// altitude curve is sampled hourly and a parabola is fitted through each
// 2-hour bracket to locate horizon crossings.
func MoonTimes(day time.Time, lat, lon float64) RiseSet {
	u := day.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)

	h0 := moonAltitude(start, lat, lon) - horizonCorrection
	var rise, set float64
	var hasRise, hasSet bool

	for i := 1; i <= 24; i += 2 {
		h1 := moonAltitude(hoursAfter(start, float64(i)), lat, lon) - horizonCorrection
		h2 := moonAltitude(hoursAfter(start, float64(i+1)), lat, lon) - horizonCorrection

		a := (h0+h2)/2 - h1
		b := (h2 - h0) / 2
		c := h1

		if math.Abs(a) > 1e-12 {
			xe := -b / (2 * a)
			ye := (a*xe+b)*xe + c
			disc := b*b - 4*a*c

			if disc >= 0 {
				dx := math.Sqrt(disc) / (math.Abs(a) * 2)
				x1 := xe - dx
				x2 := xe + dx
				roots := 0
				if math.Abs(x1) <= 1 {
					roots++
				}
				if math.Abs(x2) <= 1 {
					roots++
				}
				if x1 < -1 {
					x1 = x2
				}

				switch roots {
				case 1:
					if h0 < 0 {
						rise, hasRise = float64(i)+x1, true
					} else {
						set, hasSet = float64(i)+x1, true
					}
				case 2:
					if ye < 0 {
						rise, set = float64(i)+x2, float64(i)+x1
					} else {
						rise, set = float64(i)+x1, float64(i)+x2
					}
					hasRise, hasSet = true, true
				}
			}
		} else if math.Abs(b) > 1e-12 {
			root := -c / b
			if math.Abs(root) <= 1 {
				if h0 < 0 {
					rise, hasRise = float64(i)+root, true
				} else {
					set, hasSet = float64(i)+root, true
				}
			}
		}

		if hasRise && hasSet {
			break
		}
		h0 = h2
	}

	var rs RiseSet
	if hasRise {
		rs.Rise, rs.HasRise = hoursAfter(start, rise), true
	}
	if hasSet {
		rs.Set, rs.HasSet = hoursAfter(start, set), true
	}
	return rs
}
