// Package loader runs the optional init.lua startup script in a sandboxed
// Lua VM and collects the aliases and commands it declares.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	lua "github.com/yuin/gopher-lua"
)

// Alias is one alias(name, expansion) call.
type Alias struct {
	Name      string
	Expansion string
}

// Script is what init.lua declared, in call order.
type Script struct {
	Aliases  []Alias
	Commands []string
}

// Definer stores aliases. *alias.Resolver satisfies it.
type Definer interface {
	Define(ctx context.Context, name, expansion string) error
}

// Load executes the script at path. A missing file yields an empty Script.
// The Lua VM is discarded after loading.
func Load(path string) (*Script, error) {
	src, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Script{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading init script %s: %w", path, err)
	}
	return LoadString(path, string(src))
}

// LoadString executes src; name is used in error messages.
func LoadString(name, src string) (*Script, error) {
	// Create sandboxed VM.
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	openSafeLibs(L)
	sandbox(L)

	script := &Script{}
	registerAPI(L, script)

	fn, err := L.LoadString(src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return nil, fmt.Errorf("executing %s: %w", name, err)
	}

	if err := validate(script); err != nil {
		return nil, err
	}
	return script, nil
}

// Apply stores the script's aliases. Commands are left to the caller.
func (s *Script) Apply(ctx context.Context, d Definer) error {
	for _, a := range s.Aliases {
		if err := d.Define(ctx, a.Name, a.Expansion); err != nil {
			return fmt.Errorf("defining alias %s: %w", a.Name, err)
		}
	}
	return nil
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	// Base library (print, type, tostring, tonumber, pairs, ipairs, etc.)
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes dangerous globals and functions.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage", "require", "module",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}
}
