package pos

import (
	"github.com/signalsfoundry/skyregion/internal/classreg"
	"github.com/signalsfoundry/skyregion/sphgeom"
)

// Binding FromIVOAPos onto sphgeom's Region class lets sphgeom.FromIVOAPos
// work without sphgeom importing this package.
func init() {
	classreg.MustContinue(regionExtension())
}

func regionExtension() *classreg.Class {
	return classreg.NewClass(sphgeom.ModulePath, "Region",
		"Region constructors for IVOA POS strings.").
		Define(sphgeom.FactoryMember, classreg.ClassMethod, sphgeom.Factory(Parse)).
		Define("CommandFromIVOAPos", classreg.ClassMethod, ParseCommand)
}
