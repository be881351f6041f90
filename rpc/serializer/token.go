package serializer

import "strconv"

// Token is the one byte tag in front of every value in a token stream.
// Tuple and array tokens cover a range: base + arity and base + rank.
type Token byte

const (
	TokenNull      Token = 0
	TokenReference Token = 1 // followed by the int32 offset of the first occurrence
	TokenFallback  Token = 2
	TokenTrue      Token = 3
	TokenFalse     Token = 4

	// scalars
	TokenBoolean   Token = 5
	TokenInt       Token = 6
	TokenShort     Token = 7
	TokenLong      Token = 8
	TokenSbyte     Token = 9
	TokenUint      Token = 10
	TokenUshort    Token = 11
	TokenUlong     Token = 12
	TokenByte      Token = 13
	TokenFloat     Token = 14
	TokenDouble    Token = 15
	TokenDecimal   Token = 16
	TokenString    Token = 17
	TokenCharacter Token = 18
	TokenGuid      Token = 19
	TokenDate      Token = 20
	TokenTimeSpan  Token = 21

	// addresses and runtime ids
	TokenIPAddress         Token = 22
	TokenIPEndPoint        Token = 23
	TokenGrainID           Token = 24
	TokenActivationID      Token = 25
	TokenNodeAddress       Token = 26
	TokenActivationAddress Token = 27
	TokenCorrelationID     Token = 28

	// ranges
	TokenTuple Token = 29 // + arity (1-7)
	TokenArray Token = 40 // + rank

	// generic container shapes
	TokenList         Token = 50
	TokenDictionary   Token = 51
	TokenKeyValuePair Token = 52
	TokenSet          Token = 53
	TokenSortedList   Token = 54
	TokenSortedSet    Token = 55
	TokenStack        Token = 56
	TokenQueue        Token = 57
	TokenLinkedList   Token = 58

	// type header protocol
	TokenNamedType     Token = 80
	TokenExpectedType  Token = 81
	TokenSpecifiedType Token = 82

	// envelopes
	TokenRequest       Token = 90
	TokenResponse      Token = 91
	TokenStringObjDict Token = 92
	TokenObject        Token = 93
)

const (
	maxTupleArity = 7
	maxArrayRank  = TokenList - TokenArray - 1
)

var tokenNames = map[Token]string{
	TokenNull:              "Null",
	TokenReference:         "Reference",
	TokenFallback:          "Fallback",
	TokenTrue:              "True",
	TokenFalse:             "False",
	TokenBoolean:           "Boolean",
	TokenInt:               "Int",
	TokenShort:             "Short",
	TokenLong:              "Long",
	TokenSbyte:             "Sbyte",
	TokenUint:              "Uint",
	TokenUshort:            "Ushort",
	TokenUlong:             "Ulong",
	TokenByte:              "Byte",
	TokenFloat:             "Float",
	TokenDouble:            "Double",
	TokenDecimal:           "Decimal",
	TokenString:            "String",
	TokenCharacter:         "Character",
	TokenGuid:              "Guid",
	TokenDate:              "Date",
	TokenTimeSpan:          "TimeSpan",
	TokenIPAddress:         "IpAddress",
	TokenIPEndPoint:        "IpEndPoint",
	TokenGrainID:           "GrainId",
	TokenActivationID:      "ActivationId",
	TokenNodeAddress:       "SiloAddress",
	TokenActivationAddress: "ActivationAddress",
	TokenCorrelationID:     "CorrelationId",
	TokenList:              "List",
	TokenDictionary:        "Dictionary",
	TokenKeyValuePair:      "KeyValuePair",
	TokenSet:               "Set",
	TokenSortedList:        "SortedList",
	TokenSortedSet:         "SortedSet",
	TokenStack:             "Stack",
	TokenQueue:             "Queue",
	TokenLinkedList:        "LinkedList",
	TokenNamedType:         "NamedType",
	TokenExpectedType:      "ExpectedType",
	TokenSpecifiedType:     "SpecifiedType",
	TokenRequest:           "Request",
	TokenResponse:          "Response",
	TokenStringObjDict:     "StringObjDict",
	TokenObject:            "Object",
}

// String returns the name of the token, range tokens carry their offset
func (t Token) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	switch {
	case t > TokenTuple && t <= TokenTuple+maxTupleArity:
		return "Tuple" + strconv.Itoa(int(t-TokenTuple))
	case t > TokenArray && t <= TokenArray+maxArrayRank:
		return "Array" + strconv.Itoa(int(t-TokenArray))
	}
	return "Token(" + strconv.Itoa(int(t)) + ")"
}
