package inject

import (
	"reflect"
	"testing"

	"github.com/arc-language/zule/pkg/core"
	"github.com/arc-language/zule/pkg/payload"
)

func TestRequirementSetKeepsEveryRequirement(t *testing.T) {
	table := payload.SupportTable(core.RuntimeSubstrate)
	substrate, _ := payload.MatchSupport(table, "@rpath/CydiaSubstrate.framework/CydiaSubstrate")
	rocket, _ := payload.MatchSupport(table, "/usr/lib/librocketbootstrap.dylib")

	set := NewRequirementSet()
	set.Add(Requirement{Payload: "A.dylib", Library: substrate})
	set.Add(Requirement{Payload: "B.dylib", Library: rocket})
	set.Add(Requirement{Payload: "B.dylib", Library: substrate})

	if got := set.Libraries(); !reflect.DeepEqual(got, []payload.SupportLibrary{substrate, rocket}) {
		t.Errorf("Libraries() = %v", got)
	}
	if set.Len() != 2 || !set.Has(payload.KeyRocketBootstrap) {
		t.Errorf("Len() = %d, Has(rocketbootstrap) = %v", set.Len(), set.Has(payload.KeyRocketBootstrap))
	}
	if got := set.Requirements(); len(got) != 3 || got[2].Payload != "B.dylib" || got[2].Library != substrate {
		t.Errorf("Requirements() = %+v", got)
	}
}
