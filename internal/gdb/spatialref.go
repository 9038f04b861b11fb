package gdb

import (
	"regexp"
	"strings"

	"github.com/miczat/fc-profiler/internal/fgb"
)

// Coordinate reference system kinds.
const (
	CRSProjected  = "Projected"
	CRSGeographic = "Geographic"
	CRSUnknown    = "Unknown"
)

// SpatialReference describes the coordinate reference system of a feature
// class. The zero value is the unknown reference.
type SpatialReference struct {
	Name        string
	WKID        int
	Type        string // CRSProjected, CRSGeographic or CRSUnknown
	LinearUnit  string
	AngularUnit string
	WKT         string
}

// Unknown is reported for feature classes without a coordinate system.
var Unknown = SpatialReference{
	Name:        "Unknown",
	Type:        CRSUnknown,
	LinearUnit:  "Unknown",
	AngularUnit: "Unknown",
}

// Units returns the linear unit for projected systems, the angular unit
// for geographic systems and "Unknown" otherwise.
func (s SpatialReference) Units() string {
	switch s.Type {
	case CRSProjected:
		return s.LinearUnit
	case CRSGeographic:
		return s.AngularUnit
	default:
		return "Unknown"
	}
}

// IsKnown reports whether s identifies a coordinate system.
func (s SpatialReference) IsKnown() bool {
	return s.Type != CRSUnknown && s.Type != ""
}

var registry = map[int]SpatialReference{
	3112: {
		Name:        "GDA_1994_Geoscience_Australia_Lambert",
		WKID:        3112,
		Type:        CRSProjected,
		LinearUnit:  "Meter",
		AngularUnit: "Degree",
		WKT:         `PROJCS["GDA_1994_Geoscience_Australia_Lambert",GEOGCS["GCS_GDA_1994",DATUM["D_GDA_1994",SPHEROID["GRS_1980",6378137.0,298.257222101]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Lambert_Conformal_Conic"],PARAMETER["False_Easting",0.0],PARAMETER["False_Northing",0.0],PARAMETER["Central_Meridian",134.0],PARAMETER["Standard_Parallel_1",-18.0],PARAMETER["Standard_Parallel_2",-36.0],PARAMETER["Latitude_Of_Origin",0.0],UNIT["Meter",1.0]]`,
	},
	4283: {
		Name:        "GCS_GDA_1994",
		WKID:        4283,
		Type:        CRSGeographic,
		AngularUnit: "Degree",
		WKT:         `GEOGCS["GCS_GDA_1994",DATUM["D_GDA_1994",SPHEROID["GRS_1980",6378137.0,298.257222101]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`,
	},
	4326: {
		Name:        "GCS_WGS_1984",
		WKID:        4326,
		Type:        CRSGeographic,
		AngularUnit: "Degree",
		WKT:         `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`,
	},
	3857: {
		Name:        "WGS_1984_Web_Mercator_Auxiliary_Sphere",
		WKID:        3857,
		Type:        CRSProjected,
		LinearUnit:  "Meter",
		AngularUnit: "Degree",
		WKT:         `PROJCS["WGS_1984_Web_Mercator_Auxiliary_Sphere",GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Mercator_Auxiliary_Sphere"],PARAMETER["False_Easting",0.0],PARAMETER["False_Northing",0.0],PARAMETER["Central_Meridian",0.0],PARAMETER["Standard_Parallel_1",0.0],PARAMETER["Auxiliary_Sphere_Type",0.0],UNIT["Meter",1.0]]`,
	},
	28356: {
		Name:        "GDA_1994_MGA_Zone_56",
		WKID:        28356,
		Type:        CRSProjected,
		LinearUnit:  "Meter",
		AngularUnit: "Degree",
		WKT:         `PROJCS["GDA_1994_MGA_Zone_56",GEOGCS["GCS_GDA_1994",DATUM["D_GDA_1994",SPHEROID["GRS_1980",6378137.0,298.257222101]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Transverse_Mercator"],PARAMETER["False_Easting",500000.0],PARAMETER["False_Northing",10000000.0],PARAMETER["Central_Meridian",153.0],PARAMETER["Scale_Factor",0.9996],PARAMETER["Latitude_Of_Origin",0.0],UNIT["Meter",1.0]]`,
	},
}

// SpatialReferenceByWKID returns the registered coordinate system with the
// given well-known ID.
func SpatialReferenceByWKID(wkid int) (SpatialReference, bool) {
	sr, ok := registry[wkid]
	return sr, ok
}

// crs converts s to a FlatGeobuf CRS, nil for the unknown reference.
func (s SpatialReference) crs() *fgb.CRS {
	if !s.IsKnown() {
		return nil
	}
	return &fgb.CRS{
		Org:  "EPSG",
		Code: s.WKID,
		Name: s.Name,
		WKT:  s.WKT,
	}
}

var (
	wktRoot = regexp.MustCompile(`^\s*(PROJCS|GEOGCS|PROJCRS|GEOGCRS|GEODCRS)\s*\[\s*"([^"]*)"`)
	wktUnit = regexp.MustCompile(`UNIT\s*\[\s*"([^"]*)"`)
)

// spatialReferenceFromCRS resolves a stored CRS. Registered codes win;
// otherwise name, type and units are parsed from the WKT.
func spatialReferenceFromCRS(c *fgb.CRS) SpatialReference {
	if c == nil {
		return Unknown
	}
	if sr, ok := registry[c.Code]; ok {
		return sr
	}

	sr := SpatialReference{
		Name:        c.Name,
		WKID:        c.Code,
		Type:        CRSUnknown,
		LinearUnit:  "Unknown",
		AngularUnit: "Unknown",
		WKT:         c.WKT,
	}

	if m := wktRoot.FindStringSubmatch(c.WKT); m != nil {
		if sr.Name == "" {
			sr.Name = m[2]
		}
		units := wktUnit.FindAllStringSubmatch(c.WKT, -1)
		switch strings.ToUpper(m[1]) {
		case "PROJCS", "PROJCRS":
			sr.Type = CRSProjected
			if len(units) > 0 {
				sr.LinearUnit = units[len(units)-1][1]
				sr.AngularUnit = units[0][1]
			}
		default:
			sr.Type = CRSGeographic
			if len(units) > 0 {
				sr.AngularUnit = units[0][1]
			}
		}
	}
	if sr.Name == "" {
		sr.Name = "Unknown"
	}
	return sr
}
