package subgraph

const queryPondBalance = `query PondBalance($address: String) {
  users(where: { address: $address }) {
    balance
  }
}`

const queryMpondBalance = `query MpondBalance($id: String) {
  balances(where: { id: $id }) {
    amount
  }
}`

const jobFields = `
    id
    owner
    provider
    metadata
    rate
    balance
    totalDeposit
    refund
    lastSettled
    createdAt
    depositHistory(orderBy: timestamp, orderDirection: desc) {
      id
      amount
      timestamp
      isWithdrawal
      txHash
    }
    settlementHistory(orderBy: timestamp, orderDirection: desc) {
      id
      amount
      timestamp
      txHash
    }`

const queryOysterJobs = `query OysterJobs($owner: String) {
  jobs(first: 1000, where: { owner: $owner }, orderBy: createdAt, orderDirection: desc) {` + jobFields + `
  }
}`

const queryMerchantJobs = `query MerchantJobs($provider: String) {
  jobs(first: 1000, where: { provider: $provider }, orderBy: createdAt, orderDirection: desc) {` + jobFields + `
  }
}`

const queryProviderDetails = `query ProviderDetails($id: String) {
  providers(where: { id: $id }) {
    id
    cp
    live
  }
}`

const queryAllowance = `query Allowance($owner: String, $spender: String) {
  allowances(where: { owner: $owner, spender: $spender }) {
    amount
  }
}`
