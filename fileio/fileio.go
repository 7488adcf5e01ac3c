// Package fileio implements the conduit_pair and mmap file I/O
// protocols, gluing the generator/serialize packages to the mmap
// collaborator and the OS filesystem.
package fileio

import (
	"os"

	conduit "github.com/ghackebeil/conduit"
	"github.com/ghackebeil/conduit/generator"
	"github.com/ghackebeil/conduit/mmap"
	"github.com/ghackebeil/conduit/serialize"
)

// Save writes n as a conduit_pair: path+".schema.json" (the detailed
// schema of n's compacted layout, suitable for round-trip) and
// path+".bin" (the serialized bytes).
func Save(path string, n *conduit.Node, emit serialize.EmitOptions) error {
	compacted, err := n.CompactTo()
	if err != nil {
		return err
	}
	schemaJSON, err := serialize.ToJSON(compacted, generator.ProtocolConduit, emit)
	if err != nil {
		return err
	}
	raw, err := n.Serialize()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path+".schema.json", []byte(schemaJSON), 0o644); err != nil {
		return conduit.WrapError(conduit.IoError, path, err)
	}
	if err := os.WriteFile(path+".bin", raw, 0o644); err != nil {
		return conduit.WrapError(conduit.IoError, path, err)
	}
	return nil
}

// Load reads a conduit_pair back into an allocated Node.
func Load(path string, opts conduit.Options) (*conduit.Node, error) {
	schemaJSON, err := os.ReadFile(path + ".schema.json")
	if err != nil {
		return nil, conduit.WrapError(conduit.IoError, path, err)
	}
	data, err := os.ReadFile(path + ".bin")
	if err != nil {
		return nil, conduit.WrapError(conduit.IoError, path, err)
	}
	return serialize.Deserialize(schemaJSON, data, opts)
}

// OpenMmap opens path+".bin" and binds a Node to it with external
// storage. schemaJSON selects the Schema; when
// nil, the sidecar path+".schema.json" is read instead. When writable and
// the schema describes more bytes than the file currently holds, the file
// is grown to fit. The returned Region must be closed by the caller once
// the Node is no longer in use.
func OpenMmap(path string, writable bool, schemaJSON []byte, opts conduit.Options) (*conduit.Node, mmap.Region, error) {
	if schemaJSON == nil {
		sidecar, err := os.ReadFile(path + ".schema.json")
		if err != nil {
			return nil, nil, conduit.WrapError(conduit.IoError, path, err)
		}
		schemaJSON = sidecar
	}
	sch, err := generator.ParseSchema(schemaJSON, opts.DefaultEndianness)
	if err != nil {
		return nil, nil, err
	}
	region, err := mmap.Open(path+".bin", writable, sch.TotalBytes())
	if err != nil {
		return nil, nil, conduit.WrapError(conduit.IoError, path, err)
	}
	node := conduit.BindTree(sch, region.Bytes(), true, opts)
	return node, region, nil
}
