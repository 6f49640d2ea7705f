package cybersource

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kevin07696/cybersource-plugin/internal/domain"
	domainports "github.com/kevin07696/cybersource-plugin/internal/domain/ports"
)

// Faults that mean the request was rejected before processing; no money moved.
var cancelingFaultCodes = map[string]bool{
	"wsse:FailedCheck":     true,
	"wsse:InvalidSecurity": true,
	"soap:Client":          true,
	"c:ServerError":        true,
}

var errNoReplyMessage = errors.New("SOAP body has neither replyMessage nor Fault")

// xmlNode is a namespace-stripped element tree
type xmlNode struct {
	name     string
	text     string
	children []*xmlNode
}

func (n *xmlNode) child(name string) *xmlNode {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

func (n *xmlNode) childText(name string) string {
	if c := n.child(name); c != nil {
		return strings.TrimSpace(c.text)
	}
	return ""
}

// parseXMLTree decodes body into a tree keyed by local element names
func parseXMLTree(body []byte) (*xmlNode, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var stack []*xmlNode
	var root *xmlNode

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &xmlNode{name: t.Name.Local}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, node)
			} else if root == nil {
				root = node
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			}
		}
	}

	if root == nil {
		return nil, errors.New("empty XML document")
	}
	return root, nil
}

// flattenReply turns replyMessage into ordered key/value pairs. Nested leaves
// are keyed parent_leaf, then every key also gets its short form (everything
// after the first underscore) unless a key with that name was already seen.
func flattenReply(reply *xmlNode) ([]string, map[string]string) {
	var keys []string
	values := make(map[string]string)
	add := func(k, v string) {
		if _, ok := values[k]; ok {
			return
		}
		keys = append(keys, k)
		values[k] = v
	}

	var walk func(prefix string, n *xmlNode)
	walk = func(prefix string, n *xmlNode) {
		key := n.name
		if prefix != "" {
			key = prefix + "_" + n.name
		}
		if len(n.children) == 0 {
			add(key, strings.TrimSpace(n.text))
			return
		}
		for _, c := range n.children {
			walk(key, c)
		}
	}
	for _, c := range reply.children {
		walk("", c)
	}

	long := append([]string(nil), keys...)
	for _, k := range long {
		i := strings.Index(k, "_")
		if i < 0 {
			continue
		}
		add(k[i+1:], values[k])
	}

	return keys, values
}

// parseReply converts a SOAP response body into a gateway reply. orderID is
// the merchant reference code the request was sent with.
func parseReply(body []byte, orderID string, test bool, codes *domain.ReasonCodeTable) (*domainports.GatewayReply, error) {
	root, err := parseXMLTree(body)
	if err != nil {
		return nil, err
	}

	soapBody := root.child("Body")
	if soapBody == nil {
		return nil, errNoReplyMessage
	}

	if fault := soapBody.child("Fault"); fault != nil {
		return faultReply(fault, test), nil
	}

	reply := soapBody.child("replyMessage")
	if reply == nil {
		return nil, errNoReplyMessage
	}

	_, v := flattenReply(reply)
	get := func(k string) *string { return domain.StringPtr(v[k]) }

	params := domain.GatewayParams{
		MerchantReferenceCode: get("merchantReferenceCode"),
		RequestID:             get("requestID"),
		Decision:              get("decision"),
		ReasonCode:            get("reasonCode"),
		RequestToken:          get("requestToken"),
		Currency:              get("currency"),
		Amount:                get("amount"),
		AuthorizationCode:     get("authorizationCode"),
		AVSCode:               get("avsCode"),
		AVSCodeRaw:            get("avsCodeRaw"),
		CVCode:                get("cvCode"),
		AuthorizedDateTime:    get("authorizedDateTime"),
		ProcessorResponse:     get("processorResponse"),
		ReconciliationID:      get("reconciliationID"),
		SubscriptionID:        get("subscriptionID"),
	}

	message := get("message")
	if msg, ok := codes.Message(v["reasonCode"]); ok {
		message = &msg
	}

	decision := strings.ToUpper(v["decision"])
	out := &domainports.GatewayReply{
		Message:      message,
		Params:       params,
		Verification: verificationFor(v["avsCode"], v["cvCode"]),
		Success:      decision == "ACCEPT",
		FraudReview:  decision == "REVIEW",
		Test:         test,
	}
	if out.Success {
		out.Authorization = authorization(orderID, v["requestID"], v["requestToken"])
	}

	return out, nil
}

// authorization joins the non-blank parts as order;requestID;requestToken
func authorization(parts ...string) *string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	auth := strings.Join(kept, ";")
	return &auth
}

// faultReply records a SOAP fault. Security and client faults are rejected
// before processing, so they are canceled rather than failed.
func faultReply(fault *xmlNode, test bool) *domainports.GatewayReply {
	code := fault.childText("faultcode")
	text := fault.childText("faultstring")
	message := fmt.Sprintf("%s: %s", code, text)

	if cancelingFaultCodes[code] {
		message = domain.ExceptionMessage("", message, domain.StatusCanceled)
	}

	return &domainports.GatewayReply{
		Message: &message,
		Test:    test,
	}
}
