// Package canonical normalizes structured request data into a deterministic
// byte sequence suitable for signing.
//
// A Value is a small tagged tree (null, string, number, bool, object, array).
// Canonicalize drops null-valued object members, orders object keys bytewise
// ascending at every level, and preserves array order. Marshal writes the
// result as compact JSON without HTML escaping, so identical content always
// yields identical bytes regardless of the input key order or extra nulls:
//
//	body, err := canonical.Serialize(map[string]any{
//	    "out_order_no": "X1",
//	    "fees":         nil,
//	    "openid":       "o1",
//	})
//	// body == {"openid":"o1","out_order_no":"X1"}
package canonical
