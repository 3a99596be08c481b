package contract

// OysterMarketABI covers the job and provider methods of the oyster market contract.
const OysterMarketABI = `[
 {"anonymous":false,"inputs":[
   {"indexed":true,"internalType":"bytes32","name":"job","type":"bytes32"},
   {"indexed":false,"internalType":"string","name":"metadata","type":"string"},
   {"indexed":true,"internalType":"address","name":"owner","type":"address"},
   {"indexed":true,"internalType":"address","name":"provider","type":"address"},
   {"indexed":false,"internalType":"uint256","name":"rate","type":"uint256"},
   {"indexed":false,"internalType":"uint256","name":"balance","type":"uint256"},
   {"indexed":false,"internalType":"uint256","name":"timestamp","type":"uint256"}],
  "name":"JobOpened","type":"event"},
 {"inputs":[
   {"internalType":"string","name":"_metadata","type":"string"},
   {"internalType":"address","name":"_provider","type":"address"},
   {"internalType":"uint256","name":"_rate","type":"uint256"},
   {"internalType":"uint256","name":"_balance","type":"uint256"}],
  "name":"jobOpen","outputs":[],"stateMutability":"nonpayable","type":"function"},
 {"inputs":[{"internalType":"bytes32","name":"_job","type":"bytes32"},{"internalType":"uint256","name":"_amount","type":"uint256"}],
  "name":"jobDeposit","outputs":[],"stateMutability":"nonpayable","type":"function"},
 {"inputs":[{"internalType":"bytes32","name":"_job","type":"bytes32"},{"internalType":"uint256","name":"_amount","type":"uint256"}],
  "name":"jobWithdraw","outputs":[],"stateMutability":"nonpayable","type":"function"},
 {"inputs":[{"internalType":"bytes32","name":"_job","type":"bytes32"},{"internalType":"uint256","name":"_newRate","type":"uint256"}],
  "name":"jobReviseRateInitiate","outputs":[],"stateMutability":"nonpayable","type":"function"},
 {"inputs":[{"internalType":"bytes32","name":"_job","type":"bytes32"}],
  "name":"jobReviseRateCancel","outputs":[],"stateMutability":"nonpayable","type":"function"},
 {"inputs":[{"internalType":"bytes32","name":"_job","type":"bytes32"}],
  "name":"jobReviseRateFinalize","outputs":[],"stateMutability":"nonpayable","type":"function"},
 {"inputs":[{"internalType":"bytes32","name":"_job","type":"bytes32"}],
  "name":"jobClose","outputs":[],"stateMutability":"nonpayable","type":"function"},
 {"inputs":[{"internalType":"bytes32","name":"_job","type":"bytes32"}],
  "name":"jobSettle","outputs":[],"stateMutability":"nonpayable","type":"function"},
 {"inputs":[{"internalType":"string","name":"_cp","type":"string"}],
  "name":"providerAdd","outputs":[],"stateMutability":"nonpayable","type":"function"},
 {"inputs":[{"internalType":"string","name":"_cp","type":"string"}],
  "name":"providerUpdateWithCp","outputs":[],"stateMutability":"nonpayable","type":"function"},
 {"inputs":[],"name":"providerRemove","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

const ERC20ABI = `[
 {"inputs":[{"internalType":"address","name":"spender","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],
  "name":"approve","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
 {"inputs":[{"internalType":"address","name":"owner","type":"address"},{"internalType":"address","name":"spender","type":"address"}],
  "name":"allowance","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
 {"inputs":[{"internalType":"address","name":"account","type":"address"}],
  "name":"balanceOf","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`
