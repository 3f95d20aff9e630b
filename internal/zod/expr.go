package zod

import "strings"

// Expr is a compiled validation expression. Values are immutable: every
// method returns a new Expr wrapping the receiver.
type Expr struct {
	Code       string
	Nullable   bool
	Optional   bool
	HasDefault bool
	// Name is the exported identifier when the expression is a reference
	// to a declaration, empty otherwise.
	Name string
}

// ref returns a bare reference to a declaration.
func ref(name string) Expr { return Expr{Code: name, Name: name} }

func raw(code string) Expr { return Expr{Code: code} }

// IsRef reports whether e only names another declaration.
func (e Expr) IsRef() bool { return e.Name != "" }

func (e Expr) String() string { return e.Code }

// Call chains a method call onto e.
func (e Expr) Call(method string, args ...string) Expr {
	out := e
	out.Code = e.Code + "." + method + "(" + strings.Join(args, ", ") + ")"
	out.Name = ""
	return out
}

// OrNull marks e nullable unless it already is.
func (e Expr) OrNull() Expr {
	if e.Nullable {
		return e
	}
	out := e.Call("nullable")
	out.Nullable = true
	return out
}

// Opt marks e optional unless it already is.
func (e Expr) Opt() Expr {
	if e.Optional {
		return e
	}
	out := e.Call("optional")
	out.Optional = true
	return out
}
