/*
Package ids defines the runtime identities that travel inside encoded
messages: keys of grains and activations, node addresses and correlation ids.

The types are plain values. They carry no behavior beyond construction,
comparison helpers and a readable String form; their binary form is produced
by the token writer in rpc/serializer.

Key Components:

  - UniqueKey: 128 bit key plus a type code and an optional string extension
  - GrainID / ActivationID: identities built on a UniqueKey
  - NodeAddress: endpoint of a node together with its generation
  - ActivationAddress: node, grain and activation of one activation
  - CorrelationID: id that pairs a request with its response

Usage Example:

	node := ids.NewNodeAddress(netip.MustParseAddrPort("10.0.0.1:11111"), 42)
	grain := ids.NewGrainID(ids.NewIntegerKey(7, 0x1000))
	addr := &ids.ActivationAddress{Node: node, Grain: grain, Activation: ids.NewActivationID()}
	fmt.Println(addr)

Zero values are meaningful: ZeroNodeAddress and ZeroActivationID stand in for
missing parts of an ActivationAddress when it is encoded.
*/
package ids
