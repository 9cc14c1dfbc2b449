package vm

import (
	"bytes"
	"fmt"
	"strconv"
)

// cString reads the NUL-terminated string at addr.
func (m *Machine) cString(addr int32) (string, error) {
	if addr < 0 || int(addr) >= len(m.mem) {
		return "", fmt.Errorf("%w: string at %d", ErrBadAddress, addr)
	}
	end := bytes.IndexByte(m.mem[addr:], 0)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated string at %d", ErrBadAddress, addr)
	}
	return string(m.mem[addr : int(addr)+end]), nil
}

// verbs lists the conversions in format, "%%" excluded.
func verbs(format string) ([]byte, error) {
	var out []byte
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		i++
		if i == len(format) {
			return nil, fmt.Errorf("format %q ends in '%%'", format)
		}
		switch format[i] {
		case '%':
		case 'd', 'f', 's', 'c':
			out = append(out, format[i])
		default:
			return nil, fmt.Errorf("unsupported conversion %%%c in %q", format[i], format)
		}
	}
	return out, nil
}

// printf pops a format address and then one argument per conversion, the
// last conversion's argument on top.
func (m *Machine) printf() error {
	faddr, err := m.popInt()
	if err != nil {
		return err
	}
	format, err := m.cString(faddr)
	if err != nil {
		return err
	}
	vs, err := verbs(format)
	if err != nil {
		return err
	}

	args := make([]string, len(vs))
	for i := len(vs) - 1; i >= 0; i-- {
		switch vs[i] {
		case 'f':
			f, err := m.popFloat()
			if err != nil {
				return err
			}
			args[i] = strconv.FormatFloat(f, 'f', 6, 64)
		case 'd':
			v, err := m.popInt()
			if err != nil {
				return err
			}
			args[i] = strconv.Itoa(int(v))
		case 'c':
			v, err := m.popInt()
			if err != nil {
				return err
			}
			args[i] = string([]byte{byte(v)})
		case 's':
			v, err := m.popInt()
			if err != nil {
				return err
			}
			if args[i], err = m.cString(v); err != nil {
				return err
			}
		}
	}

	var buf bytes.Buffer
	n := 0
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			buf.WriteByte(format[i])
			continue
		}
		i++
		if format[i] == '%' {
			buf.WriteByte('%')
			continue
		}
		buf.WriteString(args[n])
		n++
	}
	_, err = m.out.Write(buf.Bytes())
	return err
}
