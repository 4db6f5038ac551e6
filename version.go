package wiz

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Version is a parsed PEP 440 version identifier: an epoch, a release
// segment, and the optional pre/post/dev/local qualifiers.
//
// Version is immutable once parsed; every Compare-affecting field is set at
// construction time and never mutated afterward.
type Version struct {
	raw     string
	epoch   int
	release []int
	pre     *preTag
	post    *int
	dev     *int
	local   []localSegment
}

type preTag struct {
	letter string // "a", "b", or "rc"
	num    int
}

// localSegment is one dot-separated component of a local version label. A
// segment is either numeric (isNum true, num set) or alphanumeric (the
// lowercased text kept verbatim in str).
type localSegment struct {
	isNum bool
	num   int
	str   string
}

var versionPattern = regexp.MustCompile(`(?i)^\s*` +
	`v?` +
	`(?:(?P<epoch>[0-9]+)!)?` +
	`(?P<release>[0-9]+(?:\.[0-9]+)*)` +
	`(?P<pre>[-_.]?(?P<pre_l>a|b|c|rc|alpha|beta|pre|preview)[-_.]?(?P<pre_n>[0-9]+)?)?` +
	`(?P<post>(?:-(?P<post_n1>[0-9]+))|(?:[-_.]?(?P<post_l>post|rev|r)[-_.]?(?P<post_n2>[0-9]+)?))?` +
	`(?P<dev>[-_.]?dev[-_.]?(?P<dev_n>[0-9]+)?)?` +
	`(?:\+(?P<local>[a-z0-9]+(?:[-_.][a-z0-9]+)*))?` +
	`\s*$`)

// ParseVersion parses a PEP 440 version literal.
func ParseVersion(literal string) (Version, error) {
	m := versionPattern.FindStringSubmatch(literal)
	if m == nil {
		return Version{}, &VersionError{Literal: literal, Reason: "does not match the PEP 440 version grammar"}
	}
	names := versionPattern.SubexpNames()
	groups := make(map[string]string, len(names))
	for i, n := range names {
		if n != "" && m[i] != "" {
			groups[n] = m[i]
		}
	}

	v := Version{raw: strings.TrimSpace(literal)}

	if e, ok := groups["epoch"]; ok {
		n, err := strconv.Atoi(e)
		if err != nil {
			return Version{}, &VersionError{Literal: literal, Reason: "malformed epoch"}
		}
		v.epoch = n
	}

	for _, part := range strings.Split(groups["release"], ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Version{}, &VersionError{Literal: literal, Reason: "malformed release segment"}
		}
		v.release = append(v.release, n)
	}

	if pl, ok := groups["pre_l"]; ok {
		num := 0
		if pn, ok := groups["pre_n"]; ok {
			num, _ = strconv.Atoi(pn)
		}
		v.pre = &preTag{letter: canonicalPreLetter(pl), num: num}
	}

	if _, ok := groups["post"]; ok {
		num := 0
		if pn, ok := groups["post_n1"]; ok {
			num, _ = strconv.Atoi(pn)
		} else if pn, ok := groups["post_n2"]; ok {
			num, _ = strconv.Atoi(pn)
		}
		v.post = &num
	}

	if _, ok := groups["dev"]; ok {
		num := 0
		if dn, ok := groups["dev_n"]; ok {
			num, _ = strconv.Atoi(dn)
		}
		v.dev = &num
	}

	if loc, ok := groups["local"]; ok {
		for _, seg := range strings.Split(loc, ".") {
			seg = strings.ToLower(seg)
			if n, err := strconv.Atoi(seg); err == nil {
				v.local = append(v.local, localSegment{isNum: true, num: n})
			} else {
				v.local = append(v.local, localSegment{str: seg})
			}
		}
	}

	return v, nil
}

func canonicalPreLetter(l string) string {
	switch strings.ToLower(l) {
	case "alpha":
		return "a"
	case "beta":
		return "b"
	case "c", "pre", "preview":
		return "rc"
	default:
		return strings.ToLower(l)
	}
}

// MustParseVersion panics on an invalid literal; intended for literals baked
// into tests and constants, not for data fed in at runtime.
func MustParseVersion(literal string) Version {
	v, err := ParseVersion(literal)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders the canonical PEP 440 form of the version.
func (v Version) String() string {
	var b strings.Builder
	if v.epoch != 0 {
		fmt.Fprintf(&b, "%d!", v.epoch)
	}
	for i, seg := range v.release {
		if i > 0 {
			b.WriteByte('.')
		}
		fmt.Fprintf(&b, "%d", seg)
	}
	if v.pre != nil {
		fmt.Fprintf(&b, "%s%d", v.pre.letter, v.pre.num)
	}
	if v.post != nil {
		fmt.Fprintf(&b, ".post%d", *v.post)
	}
	if v.dev != nil {
		fmt.Fprintf(&b, ".dev%d", *v.dev)
	}
	if len(v.local) > 0 {
		b.WriteByte('+')
		for i, seg := range v.local {
			if i > 0 {
				b.WriteByte('.')
			}
			if seg.isNum {
				fmt.Fprintf(&b, "%d", seg.num)
			} else {
				b.WriteString(seg.str)
			}
		}
	}
	return b.String()
}

func (v Version) IsPrerelease() bool { return v.pre != nil || v.dev != nil }

const (
	rankNegInf = -1
	rankTagged = 0
	rankFinal  = 1
)

// preRank returns a (kind, letterRank, num) sortable tuple for the
// pre-release component, following packaging.version._cmpkey: a dev-only
// release sorts before every pre-release of the same release segment, and a
// release with no pre-release tag at all sorts after all of them.
func (v Version) preRank() (int, int, int) {
	switch {
	case v.pre == nil && v.post == nil && v.dev != nil:
		return rankNegInf, 0, 0
	case v.pre == nil:
		return rankFinal, 0, 0
	default:
		letterRank := map[string]int{"a": 0, "b": 1, "rc": 2}[v.pre.letter]
		return rankTagged, letterRank, v.pre.num
	}
}

func (v Version) postRank() (bool, int) {
	if v.post == nil {
		return false, 0
	}
	return true, *v.post
}

// devRank returns ok=true with the dev number when present; an absent dev
// component sorts after a present one, the mirror image of postRank.
func (v Version) devRank() (bool, int) {
	if v.dev == nil {
		return false, 0
	}
	return true, *v.dev
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// o, following the total order PEP 440 defines over epoch, release, and the
// pre/post/dev/local qualifiers.
func (v Version) Compare(o Version) int {
	if v.epoch != o.epoch {
		return cmpInt(v.epoch, o.epoch)
	}
	if c := cmpReleases(v.release, o.release); c != 0 {
		return c
	}

	vKind, vLetter, vNum := v.preRank()
	oKind, oLetter, oNum := o.preRank()
	if vKind != oKind {
		return cmpInt(vKind, oKind)
	}
	if vKind == rankTagged {
		if vLetter != oLetter {
			return cmpInt(vLetter, oLetter)
		}
		if vNum != oNum {
			return cmpInt(vNum, oNum)
		}
	}

	vHasPost, vPost := v.postRank()
	oHasPost, oPost := o.postRank()
	if vHasPost != oHasPost {
		if !vHasPost {
			return -1
		}
		return 1
	}
	if vHasPost && vPost != oPost {
		return cmpInt(vPost, oPost)
	}

	vHasDev, vDev := v.devRank()
	oHasDev, oDev := o.devRank()
	if vHasDev != oHasDev {
		if vHasDev {
			return -1
		}
		return 1
	}
	if vHasDev && vDev != oDev {
		return cmpInt(vDev, oDev)
	}

	return cmpLocal(v.local, o.local)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpReleases(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var av, bv int
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			return cmpInt(av, bv)
		}
	}
	return 0
}

// cmpLocal compares local-version label lists. Absence of a local label
// always sorts lowest; otherwise segments compare position by position,
// numeric segments outrank string segments at the same position, and a
// shorter list that is a prefix of the longer one sorts lower.
func cmpLocal(a, b []localSegment) int {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	if len(a) == 0 {
		return -1
	}
	if len(b) == 0 {
		return 1
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		as, bs := a[i], b[i]
		if as.isNum != bs.isNum {
			if as.isNum {
				return 1
			}
			return -1
		}
		if as.isNum {
			if as.num != bs.num {
				return cmpInt(as.num, bs.num)
			}
		} else if as.str != bs.str {
			if as.str < bs.str {
				return -1
			}
			return 1
		}
	}
	return cmpInt(len(a), len(b))
}

// Equal reports whether two versions compare equal.
func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }
