package abi

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/pkg/errors"
)

type Abi struct {
	contractAbi abi.ABI
}

func New(abiStr string) (*Abi, error) {
	a, err := abi.JSON(strings.NewReader(abiStr))
	if err != nil {
		return nil, err
	}

	return &Abi{contractAbi: a}, nil
}

func (a *Abi) PackInput(abiMethod string, params ...interface{}) ([]byte, error) {
	input, err := a.contractAbi.Pack(abiMethod, params...)
	if err != nil {
		return nil, errors.Wrapf(err, "pack %s", abiMethod)
	}
	return input, nil
}

// UnpackInput decodes calldata produced by PackInput, selector included
func (a *Abi) UnpackInput(abiMethod string, input []byte) ([]interface{}, error) {
	method, ok := a.contractAbi.Methods[abiMethod]
	if !ok {
		return nil, errors.Errorf("method %s not found", abiMethod)
	}
	if len(input) < 4 {
		return nil, errors.New("input too short")
	}
	return method.Inputs.Unpack(input[4:])
}

func (a *Abi) UnpackOutput(method string, ret interface{}, output []byte) error {
	m, ok := a.contractAbi.Methods[method]
	if !ok {
		return errors.Errorf("method %s not found", method)
	}
	unpack, err := m.Outputs.Unpack(output)
	if err != nil {
		return errors.Wrap(err, "unpack output")
	}

	if err = m.Outputs.Copy(ret, unpack); err != nil {
		return errors.Wrap(err, "copy output")
	}
	return nil
}

// PackOutput encodes return values of method; used to fake contract replies
func (a *Abi) PackOutput(method string, values ...interface{}) ([]byte, error) {
	m, ok := a.contractAbi.Methods[method]
	if !ok {
		return nil, errors.Errorf("method %s not found", method)
	}
	return m.Outputs.Pack(values...)
}
