package vm

// ---------------------------------------------------------------------------
// Compiler injection
// ---------------------------------------------------------------------------

// CompileFunc compiles source into the top-level function of module. It is
// injected with UseCompiler so the vm package does not import the compiler
// package. Implementations allocate on vm's heap and must root functions
// under construction with PushCompilerRoot.
type CompileFunc func(vm *VM, module *ObjModule, source string) (*ObjFunction, error)

// UseCompiler attaches the compiler used by Interpret and by imports.
// The compileFunc parameter should be compiler.Compile from the compiler
// package.
func (vm *VM) UseCompiler(compileFunc CompileFunc) {
	vm.compile = compileFunc
}

// HasCompiler reports whether a compiler has been attached.
func (vm *VM) HasCompiler() bool {
	return vm.compile != nil
}

// Compile compiles source into module without running it. Used by tools
// such as the disassembler.
func (vm *VM) Compile(module *ObjModule, source string) (*ObjFunction, error) {
	if vm.compile == nil {
		return nil, errNoCompiler
	}
	return vm.compile(vm, module, source)
}

// NewScratchModule returns a module registered under name, creating it if
// needed. It is the module Interpret would use for that name.
func (vm *VM) NewScratchModule(name string) *ObjModule {
	return vm.lookupOrCreateModule(name, "")
}
