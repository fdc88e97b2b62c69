package hwio

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// bankReg is one hwio-tagged field discovered by bankFields.
type bankReg struct {
	offset uint16
	ptr    any
}

func parseTag(tag string) map[string]string {
	opts := make(map[string]string)
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if i := strings.IndexByte(part, '='); i >= 0 {
			opts[part[:i]] = part[i+1:]
		} else {
			opts[part] = ""
		}
	}
	return opts
}

func parseUint(opts map[string]string, key string, dflt uint64) uint64 {
	s, ok := opts[key]
	if !ok {
		return dflt
	}
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		panic(fmt.Errorf("hwio: field tag option %s=%q is not a number: %w", key, s, err))
	}
	return v
}

// bankFields walks the fields of the struct pointed to by bank and returns
// every hwio-tagged field whose "bank" option matches bankNum (fields
// without a "bank" option are assumed to belong to bank 0).
func bankFields(bank any, bankNum int) []bankReg {
	v := reflect.ValueOf(bank)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		panic("hwio: bank argument must be a pointer to struct")
	}
	sv := v.Elem()
	st := sv.Type()

	var regs []bankReg
	for i := range st.NumField() {
		tag, ok := st.Field(i).Tag.Lookup("hwio")
		if !ok {
			continue
		}
		opts := parseTag(tag)
		if int(parseUint(opts, "bank", 0)) != bankNum {
			continue
		}
		offset := uint16(parseUint(opts, "offset", 0))
		regs = append(regs, bankReg{offset: offset, ptr: sv.Field(i).Addr().Interface()})
	}
	return regs
}

// MustInitRegs scans every hwio-tagged field of the struct pointed to by
// bank and wires it up:
//   - Reg8/Device fields get their Name set to the Go field name, and their
//     ReadCb/WriteCb bound to sibling methods named Read<FIELD>/Write<FIELD>
//     (looked up case-insensitively on the field name in upper case), when
//     the "rcb"/"wcb" tag options are present.
//   - Reg8's "readonly"/"writeonly" options set Flags; "romask" and "reset"
//     set RoMask and the initial Value.
//   - Mem fields with a "size" option get their Data allocated automatically
//     if not already set; "vsize" sets VSize (defaults to size).
//
// It panics if a requested callback method is missing, since that is always
// a programming mistake, never a runtime condition.
func MustInitRegs(bank any) {
	v := reflect.ValueOf(bank)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		panic("hwio.MustInitRegs: argument must be a pointer to struct")
	}
	sv := v.Elem()
	st := sv.Type()

	for i := range st.NumField() {
		field := st.Field(i)
		tag, ok := field.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		opts := parseTag(tag)
		fv := sv.Field(i)

		switch ptr := fv.Addr().Interface().(type) {
		case *Reg8:
			initReg8(v, field.Name, ptr, opts)
		case *Mem:
			initMem(field.Name, ptr, opts)
		case *Device:
			initDevice(v, field.Name, ptr, opts)
		default:
			panic(fmt.Errorf("hwio: field %s has an hwio tag but unsupported type %s", field.Name, field.Type))
		}
	}
}

func mustMethod(v reflect.Value, name string) reflect.Value {
	m := v.MethodByName(name)
	if !m.IsValid() {
		panic(fmt.Errorf("hwio: callback method %s.%s not found", v.Type(), name))
	}
	return m
}

func initReg8(v reflect.Value, fieldName string, reg *Reg8, opts map[string]string) {
	reg.Name = fieldName
	reg.RoMask = uint8(parseUint(opts, "romask", 0))
	reg.Value = uint8(parseUint(opts, "reset", 0))

	if _, ok := opts["readonly"]; ok {
		reg.Flags |= ReadOnlyFlag
	}
	if _, ok := opts["writeonly"]; ok {
		reg.Flags |= WriteOnlyFlag
	}

	upper := strings.ToUpper(fieldName)
	if _, ok := opts["rcb"]; ok {
		read := mustMethod(v, "Read"+upper)
		var peekm reflect.Value
		if _, ok := opts["pcb"]; ok {
			peekm = mustMethod(v, "Peek"+upper)
		}
		reg.ReadCb = func(val uint8, peek bool) uint8 {
			if peek {
				// Peeks must stay side-effect free: use the peek callback
				// when the register declares one, the raw value otherwise.
				if peekm.IsValid() {
					out := peekm.Call([]reflect.Value{reflect.ValueOf(val)})
					return uint8(out[0].Uint())
				}
				return val
			}
			out := read.Call([]reflect.Value{reflect.ValueOf(val)})
			return uint8(out[0].Uint())
		}
	}
	if _, ok := opts["wcb"]; ok {
		m := mustMethod(v, "Write"+upper)
		reg.WriteCb = func(old, val uint8) {
			m.Call([]reflect.Value{reflect.ValueOf(old), reflect.ValueOf(val)})
		}
	}
}

func initMem(fieldName string, m *Mem, opts map[string]string) {
	if m.Name == "" {
		m.Name = fieldName
	}
	if size := parseUint(opts, "size", 0); size != 0 && m.Data == nil {
		m.Data = make([]byte, size)
	}
	if vsize := parseUint(opts, "vsize", 0); vsize != 0 {
		m.VSize = int(vsize)
	} else if m.VSize == 0 {
		m.VSize = len(m.Data)
	}
}

func initDevice(v reflect.Value, fieldName string, d *Device, opts map[string]string) {
	if d.Name == "" {
		d.Name = fieldName
	}
	if d.Size == 0 {
		d.Size = int(parseUint(opts, "size", 1))
	}
	if _, ok := opts["readonly"]; ok {
		d.Flags |= ReadOnlyFlag
	}
	if _, ok := opts["writeonly"]; ok {
		d.Flags |= WriteOnlyFlag
	}

	upper := strings.ToUpper(fieldName)
	if _, ok := opts["rcb"]; ok {
		m := mustMethod(v, "Read"+upper)
		d.ReadCb = func(addr uint16) uint8 {
			out := m.Call([]reflect.Value{reflect.ValueOf(addr)})
			return uint8(out[0].Uint())
		}
	}
	if _, ok := opts["pcb"]; ok {
		m := mustMethod(v, "Peek"+upper)
		d.PeekCb = func(addr uint16) uint8 {
			out := m.Call([]reflect.Value{reflect.ValueOf(addr)})
			return uint8(out[0].Uint())
		}
	}
	if _, ok := opts["wcb"]; ok {
		m := mustMethod(v, "Write"+upper)
		d.WriteCb = func(addr uint16, val uint8) {
			m.Call([]reflect.Value{reflect.ValueOf(addr), reflect.ValueOf(val)})
		}
	}
}
