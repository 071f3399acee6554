package sphgeom

import (
	"github.com/signalsfoundry/skyregion/internal/classreg"
)

// ModulePath is the module the region classes are registered under.
const ModulePath = "github.com/signalsfoundry/skyregion/sphgeom"

// FactoryMember is the class member that builds a Region from a POS string.
// It is bound onto the Region class by the pos package.
const FactoryMember = "FromIVOAPos"

// Factory is the signature of the FactoryMember.
type Factory = func(pos string) (Region, error)

var (
	regionClass = classreg.NewClass(ModulePath, "Region",
		"A minimal interface for 2-dimensional regions on the unit sphere.").
		Define("ContainsLonLat", classreg.Method, Region.ContainsLonLat).
		Define("Kind", classreg.Method, Region.Kind)

	circleClass = classreg.NewClass(ModulePath, "Circle",
		"A circular region on the unit sphere.", regionClass).
		Define("New", classreg.ClassMethod, NewCircle).
		Define("Radius", classreg.Property, (*Circle).RadiusDegrees)

	boxClass = classreg.NewClass(ModulePath, "Box",
		"A longitude/latitude box on the unit sphere.", regionClass).
		Define("New", classreg.ClassMethod, NewBox).
		Define("FromCorners", classreg.ClassMethod, NewBoxFromCorners).
		Define("FullLongitude", classreg.Property, (*Box).FullLongitude)

	convexPolygonClass = classreg.NewClass(ModulePath, "ConvexPolygon",
		"A convex polygon on the unit sphere with great-circle edges.", regionClass).
		Define("New", classreg.ClassMethod, NewConvexPolygon).
		Define("Vertices", classreg.Property, (*ConvexPolygon).Vertices)
)

func init() {
	for _, c := range []*classreg.Class{regionClass, circleClass, boxClass, convexPolygonClass} {
		if err := classreg.Register(c); err != nil {
			panic("failed to register " + c.String() + ": " + err.Error())
		}
	}
}

// RegionClass returns the class table entry for Region.
func RegionClass() *classreg.Class { return regionClass }

// FromIVOAPos builds a Region from an IVOA SIAv2 POS string using the
// factory bound onto the Region class. Importing the pos package binds it.
func FromIVOAPos(pos string) (Region, error) {
	build, err := classreg.Func[Factory](regionClass, FactoryMember)
	if err != nil {
		return nil, err
	}
	return build(pos)
}
