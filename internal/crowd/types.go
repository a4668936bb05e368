package crowd

// Namespace is the XML namespace of the Crowd security server operations.
const Namespace = "urn:SecurityServer"

// Principal attribute names understood by Crowd.
const (
	AttrEmail       = "mail"
	AttrDisplayName = "displayName"
	AttrFirstName   = "givenName"
	AttrSurname     = "sn"
)

// AuthenticatedToken identifies an authenticated application.
type AuthenticatedToken struct {
	Name  string `xml:"name"`
	Token string `xml:"token"`
}

// PasswordCredential carries a secret.
type PasswordCredential struct {
	Credential string `xml:"credential"`
}

// ValidationFactor binds a principal token to request properties such as
// the remote address.
type ValidationFactor struct {
	Name  string `xml:"name"`
	Value string `xml:"value"`
}

// Attribute is a multi valued principal attribute.
type Attribute struct {
	Name   string   `xml:"name"`
	Values []string `xml:"values>string"`
}

// Principal is a Crowd user.
type Principal struct {
	Name       string      `xml:"name"`
	Active     bool        `xml:"active"`
	Attributes []Attribute `xml:"attributes>SOAPAttribute"`
}

// Attribute returns the first value of the named attribute.
func (p Principal) Attribute(name string) string {
	for _, a := range p.Attributes {
		if a.Name == name && len(a.Values) > 0 {
			return a.Values[0]
		}
	}

	return ""
}

// Group is a Crowd group.
type Group struct {
	Name        string   `xml:"name"`
	Description string   `xml:"description"`
	Active      bool     `xml:"active"`
	Members     []string `xml:"members>string"`
}

// HasMember reports whether principal is a direct member.
func (g Group) HasMember(principal string) bool {
	for _, m := range g.Members {
		if m == principal {
			return true
		}
	}

	return false
}

// Names is a list of principal or group names.
type Names struct {
	Names []string `xml:"string"`
}

// Empty is the result of operations without a return value.
type Empty struct{}

// Result is either a value or the fault raised by the remote call.
type Result[T any] struct {
	Value T
	Fault error
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool {
	return r.Fault == nil
}

type userAuthenticationContext struct {
	Application       string             `xml:"application"`
	Credential        PasswordCredential `xml:"credential"`
	Name              string             `xml:"name"`
	ValidationFactors []ValidationFactor `xml:"validationFactors>ValidationFactor"`
}

type applicationAuthenticationContext struct {
	Credential PasswordCredential `xml:"credential"`
	Name       string             `xml:"name"`
}
