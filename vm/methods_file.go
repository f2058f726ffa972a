package vm

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

// fileFlags maps a `with` mode string to os.OpenFile flags.
var fileFlags = map[string]int{
	"r":  os.O_RDONLY,
	"r+": os.O_RDWR,
	"w":  os.O_WRONLY | os.O_CREATE | os.O_TRUNC,
	"w+": os.O_RDWR | os.O_CREATE | os.O_TRUNC,
	"a":  os.O_WRONLY | os.O_CREATE | os.O_APPEND,
	"a+": os.O_RDWR | os.O_CREATE | os.O_APPEND,
}

// NewFile allocates a file object around an open host file.
func (vm *VM) NewFile(f *os.File, path, mode string) *ObjFile {
	obj := &ObjFile{ObjHeader: ObjHeader{Kind: KindFile}, File: f, Path: path, Mode: mode}
	vm.allocate(obj, sizeHeader+len(path))
	return obj
}

// openFile implements the head of a `with` block. Stack: path mode -> file.
func (vm *VM) openFile() bool {
	path, okPath := As[*ObjString](vm, vm.peek(1))
	mode, okMode := As[*ObjString](vm, vm.peek(0))
	if !okPath || !okMode {
		vm.runtimeError("File path and mode must be strings.")
		return false
	}
	flags, ok := fileFlags[mode.Chars]
	if !ok {
		vm.runtimeError("Invalid file mode '%s'.", mode.Chars)
		return false
	}
	f, err := os.OpenFile(path.Chars, flags, 0o644)
	if err != nil {
		vm.runtimeError("Unable to open file '%s'.", path.Chars)
		return false
	}
	file := vm.NewFile(f, path.Chars, mode.Chars)
	vm.sp -= 2
	vm.push(file.Value())
	return true
}

func (vm *VM) defineFileMethods() {
	t := &vm.fileMethods
	vm.DefineNative(t, "read", fileRead)
	vm.DefineNative(t, "readLine", fileReadLine)
	vm.DefineNative(t, "write", fileWrite)
	vm.DefineNative(t, "writeLine", fileWriteLine)
	vm.DefineNative(t, "seek", fileSeek)
	vm.DefineNative(t, "toString", scalarToString)
}

// openReceiver returns the file a method was invoked on, failing if it
// has been closed.
func (vm *VM) openReceiver(method string, args []Value) (*ObjFile, bool) {
	f := vm.object(args[0]).(*ObjFile)
	if f.File == nil {
		vm.pendingErr = method + "() called on a closed file"
		return nil, false
	}
	return f, true
}

func fileRead(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("read", 0, argCount) {
		return Empty
	}
	f, ok := vm.openReceiver("read", args)
	if !ok {
		return Empty
	}
	data, err := io.ReadAll(f.File)
	if err != nil {
		return vm.Fail("Unable to read file '%s'.", f.Path)
	}
	return vm.StringValue(string(data))
}

// readLine returns the next line without its terminator, or nil at end of
// file. It reads byte by byte so that later reads see the rest of the
// file.
func fileReadLine(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("readLine", 0, argCount) {
		return Empty
	}
	f, ok := vm.openReceiver("readLine", args)
	if !ok {
		return Empty
	}
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := f.File.Read(buf)
		if n == 1 {
			if buf[0] == '\n' {
				break
			}
			sb.WriteByte(buf[0])
		}
		if err == io.EOF {
			if sb.Len() == 0 {
				return Nil
			}
			break
		}
		if err != nil {
			return vm.Fail("Unable to read file '%s'.", f.Path)
		}
	}
	return vm.StringValue(strings.TrimSuffix(sb.String(), "\r"))
}

func (vm *VM) writeFile(method string, args []Value, argCount int, newline bool) Value {
	if !vm.expectArgs(method, 1, argCount) {
		return Empty
	}
	f, ok := vm.openReceiver(method, args)
	if !ok {
		return Empty
	}
	s, ok := vm.stringArg(method, args, 1)
	if !ok {
		return Empty
	}
	if newline {
		s += "\n"
	}
	w := bufio.NewWriter(f.File)
	n, err := w.WriteString(s)
	if err == nil {
		err = w.Flush()
	}
	if err != nil {
		return vm.Fail("Unable to write to file '%s'.", f.Path)
	}
	return NumberValue(float64(n))
}

func fileWrite(vm *VM, argCount int, args []Value) Value {
	return vm.writeFile("write", args, argCount, false)
}

func fileWriteLine(vm *VM, argCount int, args []Value) Value {
	return vm.writeFile("writeLine", args, argCount, true)
}

// seek(offset[, whence]) moves the file position.
func fileSeek(vm *VM, argCount int, args []Value) Value {
	if argCount != 1 && argCount != 2 {
		return vm.Fail("seek() takes 1 or 2 arguments (%d given).", argCount)
	}
	f, ok := vm.openReceiver("seek", args)
	if !ok {
		return Empty
	}
	offset, ok := vm.intArg("seek", args, 1)
	if !ok {
		return Empty
	}
	whence := io.SeekStart
	if argCount == 2 {
		if whence, ok = vm.intArg("seek", args, 2); !ok {
			return Empty
		}
	}
	if _, err := f.File.Seek(int64(offset), whence); err != nil {
		return vm.Fail("Unable to seek in file '%s'.", f.Path)
	}
	return Nil
}
