// Package marker describes the placeholder API that user code calls inside
// finally blocks. Calls to it are rewritten into loads of the pending return
// value or exception; on their own they do nothing useful.
package marker

import (
	"fmt"

	"github.com/ludo-technologies/finscn/internal/bytecode"
)

// DefaultOwner is the internal name of the marker class.
const DefaultOwner = "com/github/ibessonov/finally4j/Finally"

// Version selects the naming scheme of the marker class.
type Version string

const (
	// V1 is the original getter naming: hasReturnValue, getReturnValue...
	V1 Version = "v1"
	// V2 is the current naming: hasReturnedValue, returnedValue...
	V2 Version = "v2"
)

// ParseVersion validates a version string. Empty means V2.
func ParseVersion(s string) (Version, error) {
	switch Version(s) {
	case "", V2:
		return V2, nil
	case V1:
		return V1, nil
	default:
		return "", fmt.Errorf("unknown marker surface version %q (expected v1 or v2)", s)
	}
}

// Family groups marker methods by the question they answer.
type Family int

const (
	FamilySupported Family = iota
	FamilyHasReturnedValue
	FamilyReturnedValue
	FamilyHasThrownException
	FamilyThrownException
)

func (f Family) String() string {
	switch f {
	case FamilySupported:
		return "supported"
	case FamilyHasReturnedValue:
		return "has-returned-value"
	case FamilyReturnedValue:
		return "returned-value"
	case FamilyHasThrownException:
		return "has-thrown-exception"
	case FamilyThrownException:
		return "thrown-exception"
	default:
		return "unknown"
	}
}

// Variant distinguishes the accessors within a getter family.
type Variant int

const (
	VariantGeneric Variant = iota
	VariantTyped
	VariantOptional
)

// Call is a recognized marker call site.
type Call struct {
	Name    string
	Family  Family
	Variant Variant
	// Type is the requested primitive kind of a typed getter.
	Type bytecode.TypeTag
}

// Surface recognizes calls to one marker class.
type Surface struct {
	owner   string
	version Version
	methods map[string]Call
}

type names struct {
	hasReturned    string
	returned       string
	hasThrown      string
	thrown         string
	thrownOptional string
}

var versionNames = map[Version]names{
	V1: {"hasReturnValue", "getReturnValue", "hasThrownException", "getThrownException", "getThrownExceptionOptional"},
	V2: {"hasReturnedValue", "returnedValue", "hasThrownException", "thrownException", "thrownExceptionOptional"},
}

var typedSuffixes = []struct {
	suffix string
	tag    bytecode.TypeTag
}{
	{"Boolean", bytecode.TagBoolean},
	{"Byte", bytecode.TagByte},
	{"Char", bytecode.TagChar},
	{"Short", bytecode.TagShort},
	{"Int", bytecode.TagInt},
	{"Long", bytecode.TagLong},
	{"Float", bytecode.TagFloat},
	{"Double", bytecode.TagDouble},
}

const (
	descBoolean   = "()Z"
	descObject    = "()Ljava/lang/Object;"
	descOptional  = "()Ljava/util/Optional;"
	descThrowable = "()Ljava/lang/Throwable;"
)

// NewSurface builds the surface of owner in the given naming version.
// An empty owner selects DefaultOwner.
func NewSurface(owner string, version Version) Surface {
	if owner == "" {
		owner = DefaultOwner
	}
	if _, ok := versionNames[version]; !ok {
		version = V2
	}
	n := versionNames[version]
	s := Surface{owner: owner, version: version, methods: make(map[string]Call)}

	s.add("isSupported", descBoolean, FamilySupported, VariantGeneric, 0)
	s.add(n.hasReturned, descBoolean, FamilyHasReturnedValue, VariantGeneric, 0)
	s.add(n.returned, descObject, FamilyReturnedValue, VariantGeneric, 0)
	s.add(n.returned+"Optional", descOptional, FamilyReturnedValue, VariantOptional, 0)
	for _, ts := range typedSuffixes {
		s.add(n.returned+ts.suffix, "()"+ts.tag.Descriptor(), FamilyReturnedValue, VariantTyped, ts.tag)
	}
	s.add(n.hasThrown, descBoolean, FamilyHasThrownException, VariantGeneric, 0)
	s.add(n.thrown, descThrowable, FamilyThrownException, VariantGeneric, 0)
	s.add(n.thrownOptional, descOptional, FamilyThrownException, VariantOptional, 0)
	return s
}

// DefaultSurface is the V2 surface of DefaultOwner.
func DefaultSurface() Surface {
	return NewSurface(DefaultOwner, V2)
}

func (s *Surface) add(name, desc string, family Family, variant Variant, tag bytecode.TypeTag) {
	s.methods[name+desc] = Call{Name: name, Family: family, Variant: variant, Type: tag}
}

// Owner returns the internal name of the marker class.
func (s Surface) Owner() string { return s.owner }

// Version returns the naming version.
func (s Surface) Version() Version { return s.version }

// Match recognizes in as a marker call. Only static invocations on the
// marker owner with an exact name and descriptor match.
func (s Surface) Match(in bytecode.Insn) (Call, bool) {
	if in.Op != bytecode.Invokestatic || in.Owner != s.owner {
		return Call{}, false
	}
	call, ok := s.methods[in.Name+in.Desc]
	return call, ok
}

// References reports whether any instruction of list calls the marker owner.
func (s Surface) References(list *bytecode.InsnList) bool {
	for h := list.First(); h != bytecode.NoHandle; h = list.Next(h) {
		if in := list.At(h); in.Op == bytecode.Invokestatic && in.Owner == s.owner {
			return true
		}
	}
	return false
}

// IsSupportedProbe reports whether m is the marker class's own isSupported
// method, whose body is switched to return true when rewriting is active.
func (s Surface) IsSupportedProbe(m *bytecode.Method) bool {
	return m.Owner == s.owner && m.Name == "isSupported" && m.Desc == descBoolean
}
