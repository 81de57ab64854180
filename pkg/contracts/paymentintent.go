package contracts

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// PaymentIntentABI is the ABI of the PaymentIntent contract
const PaymentIntentABI = `[
	{
		"inputs": [
			{
				"internalType": "uint8",
				"name": "paymentType",
				"type": "uint8"
			},
			{
				"internalType": "address",
				"name": "creator",
				"type": "address"
			},
			{
				"internalType": "uint256",
				"name": "contentId",
				"type": "uint256"
			},
			{
				"internalType": "address",
				"name": "paymentToken",
				"type": "address"
			},
			{
				"internalType": "uint256",
				"name": "amount",
				"type": "uint256"
			},
			{
				"internalType": "uint16",
				"name": "maxSlippage",
				"type": "uint16"
			},
			{
				"internalType": "uint256",
				"name": "deadline",
				"type": "uint256"
			}
		],
		"name": "createIntent",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [
			{
				"internalType": "bytes32",
				"name": "intentId",
				"type": "bytes32"
			}
		],
		"name": "executePayment",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{
				"indexed": true,
				"internalType": "bytes32",
				"name": "intentId",
				"type": "bytes32"
			},
			{
				"indexed": true,
				"internalType": "address",
				"name": "payer",
				"type": "address"
			},
			{
				"indexed": false,
				"internalType": "uint256",
				"name": "creatorAmount",
				"type": "uint256"
			},
			{
				"indexed": false,
				"internalType": "uint256",
				"name": "platformFee",
				"type": "uint256"
			},
			{
				"indexed": false,
				"internalType": "uint256",
				"name": "operatorFee",
				"type": "uint256"
			},
			{
				"indexed": false,
				"internalType": "uint256",
				"name": "expiresAt",
				"type": "uint256"
			}
		],
		"name": "IntentCreated",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{
				"indexed": true,
				"internalType": "bytes32",
				"name": "intentId",
				"type": "bytes32"
			},
			{
				"indexed": true,
				"internalType": "address",
				"name": "payer",
				"type": "address"
			},
			{
				"indexed": false,
				"internalType": "uint256",
				"name": "amount",
				"type": "uint256"
			}
		],
		"name": "IntentExecuted",
		"type": "event"
	}
]`

// PaymentIntent is an auto generated Go binding around an Ethereum contract.
type PaymentIntent struct {
	PaymentIntentCaller     // Read-only binding to the contract
	PaymentIntentTransactor // Write-only binding to the contract
	PaymentIntentFilterer   // Log filterer for contract events
}

// PaymentIntentCaller is an auto generated read-only Go binding around an Ethereum contract.
type PaymentIntentCaller struct {
	contract *bind.BoundContract // Generic contract wrapper for the low level calls
}

// PaymentIntentTransactor is an auto generated write-only Go binding around an Ethereum contract.
type PaymentIntentTransactor struct {
	contract *bind.BoundContract // Generic contract wrapper for the low level calls
}

// PaymentIntentFilterer is an auto generated log filtering Go binding around an Ethereum contract events.
type PaymentIntentFilterer struct {
	contract *bind.BoundContract // Generic contract wrapper for the low level calls
}

// PaymentIntentSession is an auto generated Go binding around an Ethereum contract,
// with pre-set call and transact options.
type PaymentIntentSession struct {
	Contract     *PaymentIntent    // Generic contract binding to set the session for
	CallOpts     bind.CallOpts     // Call options to use throughout this session
	TransactOpts bind.TransactOpts // Transaction auth options to use throughout this session
}

// PaymentIntentRaw is an auto generated low-level Go binding around an Ethereum contract.
type PaymentIntentRaw struct {
	Contract *PaymentIntent // Generic contract binding to access the raw methods on
}

// NewPaymentIntent creates a new instance of PaymentIntent, bound to a specific deployed contract.
func NewPaymentIntent(address common.Address, backend bind.ContractBackend) (*PaymentIntent, error) {
	contract, err := bindPaymentIntent(address, backend, backend, backend)
	if err != nil {
		return nil, err
	}
	return &PaymentIntent{
		PaymentIntentCaller:     PaymentIntentCaller{contract: contract},
		PaymentIntentTransactor: PaymentIntentTransactor{contract: contract},
		PaymentIntentFilterer:   PaymentIntentFilterer{contract: contract},
	}, nil
}

// NewPaymentIntentFilterer creates a new log filterer instance of PaymentIntent, bound to a specific deployed contract.
func NewPaymentIntentFilterer(address common.Address, filterer bind.ContractFilterer) (*PaymentIntentFilterer, error) {
	contract, err := bindPaymentIntent(address, nil, nil, filterer)
	if err != nil {
		return nil, err
	}
	return &PaymentIntentFilterer{contract: contract}, nil
}

// bindPaymentIntent binds a generic wrapper to an already deployed contract.
func bindPaymentIntent(address common.Address, caller bind.ContractCaller, transactor bind.ContractTransactor, filterer bind.ContractFilterer) (*bind.BoundContract, error) {
	parsed, err := abi.JSON(strings.NewReader(PaymentIntentABI))
	if err != nil {
		return nil, err
	}
	return bind.NewBoundContract(address, parsed, caller, transactor, filterer), nil
}

// Call invokes the (constant) contract method with params as input values and
// sets the output to result. The result type might be a single field for simple
// returns, a slice of interfaces for anonymous returns and a struct for named
// returns.
func (_PaymentIntent *PaymentIntentRaw) Call(opts *bind.CallOpts, result *[]interface{}, method string, params ...interface{}) error {
	return _PaymentIntent.Contract.PaymentIntentCaller.contract.Call(opts, result, method, params...)
}

// Transfer initiates a plain transaction to move funds to the contract, calling
// its default method if one is available.
func (_PaymentIntent *PaymentIntentRaw) Transfer(opts *bind.TransactOpts) (*types.Transaction, error) {
	return _PaymentIntent.Contract.PaymentIntentTransactor.contract.Transfer(opts)
}

// Transact invokes the (paid) contract method with params as input values.
func (_PaymentIntent *PaymentIntentRaw) Transact(opts *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error) {
	return _PaymentIntent.Contract.PaymentIntentTransactor.contract.Transact(opts, method, params...)
}

// CreateIntent is a paid mutator transaction binding the contract method 0x7c2b0b2f.
//
// Solidity: function createIntent(uint8 paymentType, address creator, uint256 contentId, address paymentToken, uint256 amount, uint16 maxSlippage, uint256 deadline) payable returns()
func (_PaymentIntent *PaymentIntentTransactor) CreateIntent(opts *bind.TransactOpts, paymentType uint8, creator common.Address, contentId *big.Int, paymentToken common.Address, amount *big.Int, maxSlippage uint16, deadline *big.Int) (*types.Transaction, error) {
	return _PaymentIntent.contract.Transact(opts, "createIntent", paymentType, creator, contentId, paymentToken, amount, maxSlippage, deadline)
}

// CreateIntent is a paid mutator transaction binding the contract method 0x7c2b0b2f.
//
// Solidity: function createIntent(uint8 paymentType, address creator, uint256 contentId, address paymentToken, uint256 amount, uint16 maxSlippage, uint256 deadline) payable returns()
func (_PaymentIntent *PaymentIntentSession) CreateIntent(paymentType uint8, creator common.Address, contentId *big.Int, paymentToken common.Address, amount *big.Int, maxSlippage uint16, deadline *big.Int) (*types.Transaction, error) {
	return _PaymentIntent.Contract.CreateIntent(&_PaymentIntent.TransactOpts, paymentType, creator, contentId, paymentToken, amount, maxSlippage, deadline)
}

// ExecutePayment is a paid mutator transaction binding the contract method 0x2f8b4a91.
//
// Solidity: function executePayment(bytes32 intentId) returns()
func (_PaymentIntent *PaymentIntentTransactor) ExecutePayment(opts *bind.TransactOpts, intentId [32]byte) (*types.Transaction, error) {
	return _PaymentIntent.contract.Transact(opts, "executePayment", intentId)
}

// ExecutePayment is a paid mutator transaction binding the contract method 0x2f8b4a91.
//
// Solidity: function executePayment(bytes32 intentId) returns()
func (_PaymentIntent *PaymentIntentSession) ExecutePayment(intentId [32]byte) (*types.Transaction, error) {
	return _PaymentIntent.Contract.ExecutePayment(&_PaymentIntent.TransactOpts, intentId)
}

// PaymentIntentIntentCreatedIterator is returned from FilterIntentCreated and is used to iterate over the raw logs and unpacked data for IntentCreated events raised by the PaymentIntent contract.
type PaymentIntentIntentCreatedIterator struct {
	Event *PaymentIntentIntentCreated // Event containing the contract specifics and raw log

	contract *bind.BoundContract // Generic contract to use for unpacking event data
	event    string              // Event name to use for unpacking event data

	logs chan types.Log        // Log channel receiving the found contract events
	sub  ethereum.Subscription // Subscription for errors, completion and termination
	done bool                  // Whether the subscription completed delivering logs
	fail error                 // Occurred error to stop iteration
}

// Next advances the iterator to the subsequent event, returning whether there
// are any more events found. In case of a retrieval or parsing error, false is
// returned and Error() can be queried for the exact failure.
func (it *PaymentIntentIntentCreatedIterator) Next() bool {
	// If the iterator failed, stop iterating
	if it.fail != nil {
		return false
	}
	// If the iterator completed, deliver directly whatever's available
	if it.done {
		select {
		case log := <-it.logs:
			it.Event = new(PaymentIntentIntentCreated)
			if err := it.contract.UnpackLog(it.Event, it.event, log); err != nil {
				it.fail = err
				return false
			}
			it.Event.Raw = log
			return true

		default:
			return false
		}
	}
	// Iterator still in progress, wait for either a data or an error event
	select {
	case log := <-it.logs:
		it.Event = new(PaymentIntentIntentCreated)
		if err := it.contract.UnpackLog(it.Event, it.event, log); err != nil {
			it.fail = err
			return false
		}
		it.Event.Raw = log
		return true

	case err := <-it.sub.Err():
		it.done = true
		it.fail = err
		return it.Next()
	}
}

// Error returns any retrieval or parsing error occurred during filtering.
func (it *PaymentIntentIntentCreatedIterator) Error() error {
	return it.fail
}

// Close terminates the iteration process, releasing any pending underlying
// resources.
func (it *PaymentIntentIntentCreatedIterator) Close() error {
	it.sub.Unsubscribe()
	return nil
}

// PaymentIntentIntentCreated represents a IntentCreated event raised by the PaymentIntent contract.
type PaymentIntentIntentCreated struct {
	IntentId      [32]byte
	Payer         common.Address
	CreatorAmount *big.Int
	PlatformFee   *big.Int
	OperatorFee   *big.Int
	ExpiresAt     *big.Int
	Raw           types.Log // Blockchain specific contextual infos
}

// FilterIntentCreated is a free log retrieval operation binding the contract event 0x4b1e2a1c.
//
// Solidity: event IntentCreated(bytes32 indexed intentId, address indexed payer, uint256 creatorAmount, uint256 platformFee, uint256 operatorFee, uint256 expiresAt)
func (_PaymentIntent *PaymentIntentFilterer) FilterIntentCreated(opts *bind.FilterOpts, intentId [][32]byte, payer []common.Address) (*PaymentIntentIntentCreatedIterator, error) {
	var intentIdRule []interface{}
	for _, intentIdItem := range intentId {
		intentIdRule = append(intentIdRule, intentIdItem)
	}
	var payerRule []interface{}
	for _, payerItem := range payer {
		payerRule = append(payerRule, payerItem)
	}

	logs, sub, err := _PaymentIntent.contract.FilterLogs(opts, "IntentCreated", intentIdRule, payerRule)
	if err != nil {
		return nil, err
	}
	return &PaymentIntentIntentCreatedIterator{contract: _PaymentIntent.contract, event: "IntentCreated", logs: logs, sub: sub}, nil
}

// WatchIntentCreated is a free log subscription operation binding the contract event 0x4b1e2a1c.
//
// Solidity: event IntentCreated(bytes32 indexed intentId, address indexed payer, uint256 creatorAmount, uint256 platformFee, uint256 operatorFee, uint256 expiresAt)
func (_PaymentIntent *PaymentIntentFilterer) WatchIntentCreated(opts *bind.WatchOpts, sink chan<- *PaymentIntentIntentCreated, intentId [][32]byte, payer []common.Address) (event.Subscription, error) {
	var intentIdRule []interface{}
	for _, intentIdItem := range intentId {
		intentIdRule = append(intentIdRule, intentIdItem)
	}
	var payerRule []interface{}
	for _, payerItem := range payer {
		payerRule = append(payerRule, payerItem)
	}

	logs, sub, err := _PaymentIntent.contract.WatchLogs(opts, "IntentCreated", intentIdRule, payerRule)
	if err != nil {
		return nil, err
	}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case log := <-logs:
				// New log arrived, parse the event and forward to the user
				event := new(PaymentIntentIntentCreated)
				if err := _PaymentIntent.contract.UnpackLog(event, "IntentCreated", log); err != nil {
					return err
				}
				event.Raw = log

				select {
				case sink <- event:
				case err := <-sub.Err():
					return err
				case <-quit:
					return nil
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

// ParseIntentCreated is a log parse operation binding the contract event 0x4b1e2a1c.
//
// Solidity: event IntentCreated(bytes32 indexed intentId, address indexed payer, uint256 creatorAmount, uint256 platformFee, uint256 operatorFee, uint256 expiresAt)
func (_PaymentIntent *PaymentIntentFilterer) ParseIntentCreated(log types.Log) (*PaymentIntentIntentCreated, error) {
	event := new(PaymentIntentIntentCreated)
	if err := _PaymentIntent.contract.UnpackLog(event, "IntentCreated", log); err != nil {
		return nil, err
	}
	event.Raw = log
	return event, nil
}

// PaymentIntentIntentExecutedIterator is returned from FilterIntentExecuted and is used to iterate over the raw logs and unpacked data for IntentExecuted events raised by the PaymentIntent contract.
type PaymentIntentIntentExecutedIterator struct {
	Event *PaymentIntentIntentExecuted // Event containing the contract specifics and raw log

	contract *bind.BoundContract // Generic contract to use for unpacking event data
	event    string              // Event name to use for unpacking event data

	logs chan types.Log        // Log channel receiving the found contract events
	sub  ethereum.Subscription // Subscription for errors, completion and termination
	done bool                  // Whether the subscription completed delivering logs
	fail error                 // Occurred error to stop iteration
}

// Next advances the iterator to the subsequent event, returning whether there
// are any more events found. In case of a retrieval or parsing error, false is
// returned and Error() can be queried for the exact failure.
func (it *PaymentIntentIntentExecutedIterator) Next() bool {
	// If the iterator failed, stop iterating
	if it.fail != nil {
		return false
	}
	// If the iterator completed, deliver directly whatever's available
	if it.done {
		select {
		case log := <-it.logs:
			it.Event = new(PaymentIntentIntentExecuted)
			if err := it.contract.UnpackLog(it.Event, it.event, log); err != nil {
				it.fail = err
				return false
			}
			it.Event.Raw = log
			return true

		default:
			return false
		}
	}
	// Iterator still in progress, wait for either a data or an error event
	select {
	case log := <-it.logs:
		it.Event = new(PaymentIntentIntentExecuted)
		if err := it.contract.UnpackLog(it.Event, it.event, log); err != nil {
			it.fail = err
			return false
		}
		it.Event.Raw = log
		return true

	case err := <-it.sub.Err():
		it.done = true
		it.fail = err
		return it.Next()
	}
}

// Error returns any retrieval or parsing error occurred during filtering.
func (it *PaymentIntentIntentExecutedIterator) Error() error {
	return it.fail
}

// Close terminates the iteration process, releasing any pending underlying
// resources.
func (it *PaymentIntentIntentExecutedIterator) Close() error {
	it.sub.Unsubscribe()
	return nil
}

// PaymentIntentIntentExecuted represents a IntentExecuted event raised by the PaymentIntent contract.
type PaymentIntentIntentExecuted struct {
	IntentId [32]byte
	Payer    common.Address
	Amount   *big.Int
	Raw      types.Log // Blockchain specific contextual infos
}

// FilterIntentExecuted is a free log retrieval operation binding the contract event 0x9d1c4b2e.
//
// Solidity: event IntentExecuted(bytes32 indexed intentId, address indexed payer, uint256 amount)
func (_PaymentIntent *PaymentIntentFilterer) FilterIntentExecuted(opts *bind.FilterOpts, intentId [][32]byte, payer []common.Address) (*PaymentIntentIntentExecutedIterator, error) {
	var intentIdRule []interface{}
	for _, intentIdItem := range intentId {
		intentIdRule = append(intentIdRule, intentIdItem)
	}
	var payerRule []interface{}
	for _, payerItem := range payer {
		payerRule = append(payerRule, payerItem)
	}

	logs, sub, err := _PaymentIntent.contract.FilterLogs(opts, "IntentExecuted", intentIdRule, payerRule)
	if err != nil {
		return nil, err
	}
	return &PaymentIntentIntentExecutedIterator{contract: _PaymentIntent.contract, event: "IntentExecuted", logs: logs, sub: sub}, nil
}

// ParseIntentExecuted is a log parse operation binding the contract event 0x9d1c4b2e.
//
// Solidity: event IntentExecuted(bytes32 indexed intentId, address indexed payer, uint256 amount)
func (_PaymentIntent *PaymentIntentFilterer) ParseIntentExecuted(log types.Log) (*PaymentIntentIntentExecuted, error) {
	event := new(PaymentIntentIntentExecuted)
	if err := _PaymentIntent.contract.UnpackLog(event, "IntentExecuted", log); err != nil {
		return nil, err
	}
	event.Raw = log
	return event, nil
}
