package domain

// Row es la forma plana de un registro tal y como viaja hacia y desde el store remoto:
// claves snake_case y valores JSON-compatibles (string, bool, nil).
type Row map[string]interface{}

// Clone devuelve una copia superficial de la fila.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Keys devuelve las columnas presentes en la fila.
func (r Row) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	return keys
}
