package loader

import (
	"log"
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// registerAPI installs the globals init.lua may call.
func registerAPI(L *lua.LState, script *Script) {
	// alias("gs", "search golang")
	L.SetGlobal("alias", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		expansion := L.CheckString(2)
		script.Aliases = append(script.Aliases, Alias{Name: name, Expansion: expansion})
		return 0
	}))

	// run("tabs") queues a command for after the banner.
	L.SetGlobal("run", L.NewFunction(func(L *lua.LState) int {
		script.Commands = append(script.Commands, L.CheckString(1))
		return 0
	}))

	// print goes to the log file; the terminal belongs to the UI.
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, L.GetTop())
		for i := range parts {
			parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
		}
		log.Printf("[init] %s", strings.Join(parts, "\t"))
		return 0
	}))

	// getenv("USER") reads an environment variable; unset returns nil.
	L.SetGlobal("getenv", L.NewFunction(func(L *lua.LState) int {
		v, ok := os.LookupEnv(L.CheckString(1))
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LString(v))
		return 1
	}))
}
