// Package factory provides a small generic registry used to instantiate
// pluggable components from configuration. A component is named by a type
// string and carries a map of raw settings; factories decode the settings
// into typed structs and return the concrete implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[Strategy]()
//	reg.Register("balanced", func(conf map[string]any) (Strategy, error) {
//	    var c struct{ MinSpacing int `json:"min_spacing"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return balanced{minSpacing: c.MinSpacing}, nil
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "balanced"})
package factory
