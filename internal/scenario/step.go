// Package scenario executes ordered session-lifecycle step sequences
// against one simulated client, asserting the expected status code at
// every step.
package scenario

// Kind tags the step variants. Exhaustive switches in the engine keep an
// unknown kind a compile-visible bug rather than a runtime surprise.
type Kind int

const (
	KindSet Kind = iota
	KindSetWithUID
	KindGet
	KindDelete
	KindSwitch
	KindReload
)

func (k Kind) String() string {
	switch k {
	case KindSet:
		return "set"
	case KindSetWithUID:
		return "set_with_uid"
	case KindGet:
		return "get"
	case KindDelete:
		return "delete"
	case KindSwitch:
		return "switch"
	case KindReload:
		return "reload"
	}
	return "unknown"
}

// Step is one lifecycle operation plus the status code the scenario
// expects from it. Expected codes are fixture data: they encode the
// observed behavior of the service build under test, not a universal
// contract.
type Step struct {
	Kind   Kind
	Expect int32
	UID    int64 // KindSetWithUID only
	Index  int   // KindSwitch only
}

func Set(expect int32) Step { return Step{Kind: KindSet, Expect: expect} }

func SetWithUID(expect int32, uid int64) Step {
	return Step{Kind: KindSetWithUID, Expect: expect, UID: uid}
}

func Get(expect int32) Step    { return Step{Kind: KindGet, Expect: expect} }
func Delete(expect int32) Step { return Step{Kind: KindDelete, Expect: expect} }
func Switch(index int) Step    { return Step{Kind: KindSwitch, Index: index} }
func Reload(expect int32) Step { return Step{Kind: KindReload, Expect: expect} }

// Scenario is a named step sequence run for one scenario-wide uid.
type Scenario struct {
	Name  string
	UID   int64
	Steps []Step
}

// Builtin returns the stock lifecycle scenarios.
func Builtin() []Scenario {
	return []Scenario{
		{
			Name: "normal_lifecycle",
			UID:  123,
			Steps: []Step{
				Set(0),
				Get(0),
				Delete(0),
				Get(1), // deleted session must not be readable
			},
		},
		{
			Name: "set_twice_delete_once",
			UID:  456,
			Steps: []Step{
				Set(0),
				Set(0),
				Delete(0), // deletes the second session
				Switch(0), // repoint at the survivor explicitly
				Get(0),
				Get(0),
			},
		},
		{
			Name: "multiple_user_sessions",
			UID:  789,
			Steps: []Step{
				Set(0),
				Get(0),
				SetWithUID(0, 101), // independently-owned second session
				Get(0),
				Switch(1),
				Get(0),
				Delete(0),
				Switch(0),
				Get(0),
				Delete(0),
				Get(1),
			},
		},
		{
			Name: "session_survives_reload",
			UID:  202,
			Steps: []Step{
				Set(0),
				Get(0),
				Reload(0),
				Get(0), // session must survive a config reload
				Delete(0),
				Get(1),
			},
		},
	}
}
