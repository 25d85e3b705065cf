package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// poolABIJSON covers the pool contract surface the backend consumes. The
// contract exposes more (fee accounting, sponsorship) but none of it is read
// or written here.
const poolABIJSON = `[
  {"type":"function","name":"latestPoolId","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getAllPoolInfo","stateMutability":"view","inputs":[{"name":"poolId","type":"uint256"}],"outputs":[
    {"name":"admin","type":"address"},
    {"name":"poolName","type":"string"},
    {"name":"depositAmountPerPerson","type":"uint256"},
    {"name":"timeStart","type":"uint40"},
    {"name":"timeEnd","type":"uint40"},
    {"name":"totalDeposits","type":"uint256"},
    {"name":"status","type":"uint8"},
    {"name":"token","type":"address"},
    {"name":"participants","type":"address[]"}
  ]},
  {"type":"function","name":"createPool","stateMutability":"nonpayable","inputs":[
    {"name":"timeStart","type":"uint40"},
    {"name":"timeEnd","type":"uint40"},
    {"name":"poolName","type":"string"},
    {"name":"depositAmountPerPerson","type":"uint256"},
    {"name":"token","type":"address"}
  ],"outputs":[]},
  {"type":"function","name":"enableDeposit","stateMutability":"nonpayable","inputs":[{"name":"poolId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"startPool","stateMutability":"nonpayable","inputs":[{"name":"poolId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"endPool","stateMutability":"nonpayable","inputs":[{"name":"poolId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"deposit","stateMutability":"nonpayable","inputs":[
    {"name":"poolId","type":"uint256"},
    {"name":"amount","type":"uint256"}
  ],"outputs":[]},
  {"type":"event","name":"PoolCreated","inputs":[
    {"name":"poolId","type":"uint256","indexed":true},
    {"name":"admin","type":"address","indexed":true},
    {"name":"poolName","type":"string","indexed":false},
    {"name":"depositAmountPerPerson","type":"uint256","indexed":false}
  ],"anonymous":false}
]`

const erc20ABIJSON = `[
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

var (
	poolABI  abi.ABI
	erc20ABI abi.ABI
)

func init() {
	var err error
	poolABI, err = abi.JSON(strings.NewReader(poolABIJSON))
	if err != nil {
		panic("chain: invalid pool ABI: " + err.Error())
	}
	erc20ABI, err = abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic("chain: invalid erc20 ABI: " + err.Error())
	}
}
