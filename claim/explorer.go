package claim

import "fmt"

// ExplorerURL returns the block-explorer URL convention for a settlement
// transaction hash on the given chain. This is published data-model
// behavior for host UIs; this package performs no rendering itself.
func ExplorerURL(blockchain Blockchain, txHash string) (string, error) {
	switch blockchain {
	case Xrp:
		return fmt.Sprintf("https://xrpscan.com/tx/%s", txHash), nil
	case Evm:
		return fmt.Sprintf("https://basescan.org/tx/%s", txHash), nil
	case Aptos:
		return fmt.Sprintf("https://explorer.aptoslabs.com/txn/%s", txHash), nil
	default:
		return "", invalid("unsupported blockchain: %q", blockchain)
	}
}
