package serializer

import "sort"

// --------------------------------------------------------------------------
// Type Token Table
// --------------------------------------------------------------------------

// exactTokens and shapeTokens are built once in init and never written again,
// concurrent readers need no synchronization
var (
	exactTokens map[*Type]Token
	shapeTokens map[*Shape]Token
)

func init() {
	exactTokens = map[*Type]Token{
		TypeBool:              TokenBoolean,
		TypeInt32:             TokenInt,
		TypeUint32:            TokenUint,
		TypeInt16:             TokenShort,
		TypeUint16:            TokenUshort,
		TypeInt64:             TokenLong,
		TypeUint64:            TokenUlong,
		TypeUint8:             TokenByte,
		TypeInt8:              TokenSbyte,
		TypeFloat32:           TokenFloat,
		TypeFloat64:           TokenDouble,
		TypeDecimal:           TokenDecimal,
		TypeString:            TokenString,
		TypeChar:              TokenCharacter,
		TypeGuid:              TokenGuid,
		TypeTime:              TokenDate,
		TypeDuration:          TokenTimeSpan,
		TypeGrainID:           TokenGrainID,
		TypeActivationID:      TokenActivationID,
		TypeNodeAddress:       TokenNodeAddress,
		TypeActivationAddress: TokenActivationAddress,
		TypeIPAddress:         TokenIPAddress,
		TypeEndpoint:          TokenIPEndPoint,
		TypeCorrelationID:     TokenCorrelationID,
		TypeRequest:           TokenRequest,
		TypeResponse:          TokenResponse,
		TypeStringObjDict:     TokenStringObjDict,
		TypeObject:            TokenObject,
	}

	shapeTokens = map[*Shape]Token{
		ShapeList:         TokenList,
		ShapeSortedList:   TokenSortedList,
		ShapeDictionary:   TokenDictionary,
		ShapeSet:          TokenSet,
		ShapeSortedSet:    TokenSortedSet,
		ShapeKeyValuePair: TokenKeyValuePair,
		ShapeLinkedList:   TokenLinkedList,
		ShapeStack:        TokenStack,
		ShapeQueue:        TokenQueue,
	}
	for arity := 1; arity <= maxTupleArity; arity++ {
		shapeTokens[TupleShape(arity)] = TokenTuple + Token(arity)
	}
}

// TokenOf returns the token of a type that has one of its own
func TokenOf(t *Type) (Token, bool) {
	tok, ok := exactTokens[t]
	return tok, ok
}

// ShapeTokenOf returns the token of an open generic shape
func ShapeTokenOf(s *Shape) (Token, bool) {
	tok, ok := shapeTokens[s]
	return tok, ok
}

// IsScalar reports whether values with this token are written by the simple
// value fast path
func IsScalar(tok Token) bool {
	return tok >= TokenBoolean && tok <= TokenCorrelationID
}

// TableEntry is one row of the type token table
type TableEntry struct {
	Name  string
	Token Token
	Shape bool // entry is an open generic shape
}

// TableEntries returns the table sorted by token
func TableEntries() []TableEntry {
	entries := make([]TableEntry, 0, len(exactTokens)+len(shapeTokens))
	for t, tok := range exactTokens {
		entries = append(entries, TableEntry{Name: t.String(), Token: tok})
	}
	for s, tok := range shapeTokens {
		entries = append(entries, TableEntry{Name: s.String(), Token: tok, Shape: true})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Token < entries[j].Token })
	return entries
}
