package mqttv5

import "errors"

// PropertyContext identifies which control packet a property set belongs to,
// so that ValidateFor can reject properties the spec does not permit there.
type PropertyContext byte

const (
	PropCtxCONNECT PropertyContext = iota
	PropCtxCONNACK
	PropCtxPUBLISH
	PropCtxPUBACK
	PropCtxPUBREC
	PropCtxPUBREL
	PropCtxPUBCOMP
	PropCtxSUBSCRIBE
	PropCtxSUBACK
	PropCtxUNSUBSCRIBE
	PropCtxUNSUBACK
	PropCtxDISCONNECT
	PropCtxAUTH
	PropCtxWILL
)

// ErrPropertyNotAllowed is returned when a property appears on a packet type
// that is not permitted to carry it.
var ErrPropertyNotAllowed = errors.New("property not allowed for this packet type")

// repeatable holds the property IDs the protocol allows to appear more than
// once in a single property set. Every other property is single-valued.
var repeatableProperties = map[PropertyID]bool{
	PropUserProperty:           true,
	PropSubscriptionIdentifier: true,
}

var allowedProperties = map[PropertyContext]map[PropertyID]bool{
	PropCtxCONNECT: {
		PropSessionExpiryInterval: true,
		PropReceiveMaximum:        true,
		PropMaximumPacketSize:     true,
		PropTopicAliasMaximum:     true,
		PropRequestResponseInfo:   true,
		PropRequestProblemInfo:    true,
		PropUserProperty:          true,
		PropAuthenticationMethod:  true,
		PropAuthenticationData:    true,
	},
	PropCtxWILL: {
		PropWillDelayInterval:      true,
		PropPayloadFormatIndicator: true,
		PropMessageExpiryInterval:  true,
		PropContentType:            true,
		PropResponseTopic:          true,
		PropCorrelationData:        true,
		PropUserProperty:           true,
	},
	PropCtxCONNACK: {
		PropSessionExpiryInterval:    true,
		PropReceiveMaximum:           true,
		PropMaximumQoS:               true,
		PropRetainAvailable:          true,
		PropMaximumPacketSize:        true,
		PropAssignedClientIdentifier: true,
		PropTopicAliasMaximum:        true,
		PropReasonString:             true,
		PropUserProperty:             true,
		PropWildcardSubAvailable:     true,
		PropSubscriptionIDAvailable:  true,
		PropSharedSubAvailable:       true,
		PropServerKeepAlive:          true,
		PropResponseInformation:      true,
		PropServerReference:          true,
		PropAuthenticationMethod:     true,
		PropAuthenticationData:       true,
	},
	PropCtxPUBLISH: {
		PropPayloadFormatIndicator: true,
		PropMessageExpiryInterval:  true,
		PropContentType:            true,
		PropResponseTopic:          true,
		PropCorrelationData:        true,
		PropSubscriptionIdentifier: true,
		PropTopicAlias:             true,
		PropUserProperty:           true,
	},
	PropCtxPUBACK:   {PropReasonString: true, PropUserProperty: true},
	PropCtxPUBREC:   {PropReasonString: true, PropUserProperty: true},
	PropCtxPUBREL:   {PropReasonString: true, PropUserProperty: true},
	PropCtxPUBCOMP:  {PropReasonString: true, PropUserProperty: true},
	PropCtxSUBSCRIBE: {
		PropSubscriptionIdentifier: true,
		PropUserProperty:           true,
	},
	PropCtxSUBACK:      {PropReasonString: true, PropUserProperty: true},
	PropCtxUNSUBSCRIBE: {PropUserProperty: true},
	PropCtxUNSUBACK:    {PropReasonString: true, PropUserProperty: true},
	PropCtxDISCONNECT: {
		PropSessionExpiryInterval: true,
		PropReasonString:         true,
		PropUserProperty:         true,
		PropServerReference:      true,
	},
	PropCtxAUTH: {
		PropAuthenticationMethod: true,
		PropAuthenticationData:   true,
		PropReasonString:         true,
		PropUserProperty:         true,
	},
}

// ValidateFor rejects duplicate non-repeatable properties and properties
// that the given packet context is not permitted to carry.
func (p *Properties) ValidateFor(ctx PropertyContext) error {
	seen := make(map[PropertyID]bool, len(p.props))
	allowed := allowedProperties[ctx]

	for _, prop := range p.props {
		if !repeatableProperties[prop.id] {
			if seen[prop.id] {
				return ErrDuplicateProperty
			}
			seen[prop.id] = true
		}
		if allowed != nil && !allowed[prop.id] {
			return ErrPropertyNotAllowed
		}
	}

	return nil
}
